// Package api serves the browser chat widget and its JSON endpoints.
package api

import "time"

const (
	// PageTitle is the browser tab title.
	PageTitle = "Chatbot Apoteker Gemini"

	// Heading is shown above the transcript.
	Heading = "👨🏻‍⚕️ Chatbot Apoteker"

	// Greeting introduces the persona under the heading.
	Greeting = "Halo! Saya seorang apoteker. Silakan tanyakan tentang obat yang Anda butuhkan."

	// SessionCookie carries the browser session id.
	SessionCookie = "apoteker_session"
)

// Config is the chat server configuration.
type Config struct {
	// Model is the model identifier reported to the widget.
	Model string

	// SessionIdle drops browser sessions idle for longer than this. Zero
	// keeps sessions for the lifetime of the process.
	SessionIdle time.Duration
}
