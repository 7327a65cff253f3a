package notify

import "context"

// PushChannel is a stub: mobile push delivery is not implemented yet.
// It registers like a real channel so dispatch records an honest per-channel
// failure instead of silently skipping push.
//
// TODO: implement on top of a push provider once the mobile apps ship
// device-token registration.
type PushChannel struct{}

// NewPushChannel creates the push channel stub.
func NewPushChannel() *PushChannel {
	return &PushChannel{}
}

func (c *PushChannel) Channel() Channel { return ChannelPush }

func (c *PushChannel) Send(ctx context.Context, n Notification, user User) error {
	return ErrPushNotImplemented
}
