package email

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Validate(t *testing.T) {
	valid := Message{
		To:       "member@example.com",
		Subject:  "Weekly summary",
		BodyHTML: "<p>hi</p>",
	}

	tests := []struct {
		name    string
		mutate  func(*Message)
		wantErr bool
	}{
		{name: "valid html only", mutate: func(m *Message) {}, wantErr: false},
		{name: "valid text only", mutate: func(m *Message) { m.BodyHTML = ""; m.BodyText = "hi" }, wantErr: false},
		{name: "missing recipient", mutate: func(m *Message) { m.To = "" }, wantErr: true},
		{name: "malformed recipient", mutate: func(m *Message) { m.To = "not-an-email" }, wantErr: true},
		{name: "missing subject", mutate: func(m *Message) { m.Subject = "" }, wantErr: true},
		{name: "missing body", mutate: func(m *Message) { m.BodyHTML = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)

			err := msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPostmarkSender_ConfigValidation(t *testing.T) {
	valid := Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "no-reply@pulsefit.app",
		SupportEmail:         "support@pulsefit.app",
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing server token", mutate: func(c *Config) { c.PostmarkServerToken = "" }},
		{name: "missing account token", mutate: func(c *Config) { c.PostmarkAccountToken = "" }},
		{name: "missing sender", mutate: func(c *Config) { c.SenderEmail = "" }},
		{name: "invalid sender", mutate: func(c *Config) { c.SenderEmail = "nope" }},
		{name: "missing support", mutate: func(c *Config) { c.SupportEmail = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			_, err := NewPostmarkSender(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		sender, err := NewPostmarkSender(valid)
		require.NoError(t, err)
		assert.NotNil(t, sender)
	})
}

func TestDevSender_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	sender := NewDevSender(filepath.Join(dir, "outbox"))

	msg := Message{
		To:       "member@example.com",
		Subject:  "Goal reached",
		BodyHTML: "<h1>Congrats</h1>",
		BodyText: "Congrats",
		Tag:      "achievement",
	}
	require.NoError(t, sender.Send(context.Background(), msg))

	entries, err := os.ReadDir(filepath.Join(dir, "outbox"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			htmlFile = e.Name()
		case ".json":
			jsonFile = e.Name()
		}
	}
	require.NotEmpty(t, htmlFile)
	require.NotEmpty(t, jsonFile)

	html, err := os.ReadFile(filepath.Join(dir, "outbox", htmlFile))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Congrats</h1>", string(html))

	raw, err := os.ReadFile(filepath.Join(dir, "outbox", jsonFile))
	require.NoError(t, err)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "member@example.com", meta["to"])
	assert.Equal(t, "Goal reached", meta["subject"])
	assert.Equal(t, "achievement", meta["tag"])
}

func TestDevSender_RejectsInvalidMessage(t *testing.T) {
	sender := NewDevSender(t.TempDir())

	err := sender.Send(context.Background(), Message{To: "bad"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "goal_reached", sanitizeFilename("Goal Reached"))
	assert.Equal(t, "email", sanitizeFilename("???"))
}
