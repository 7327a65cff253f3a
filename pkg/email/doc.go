// Package email provides the outbound mail transport used by the
// notification engine's EMAIL channel.
//
// The Sender interface abstracts the provider; two implementations ship:
//
//   - Postmark-backed sender for production (NewPostmarkSender), configured
//     through environment variables (see Config).
//   - DevSender, which writes each email to disk as an HTML file plus a JSON
//     metadata file, for local development without a provider account.
//
// Messages carry both an HTML and a plain-text body; providers are expected
// to send a multipart message when both are present.
package email
