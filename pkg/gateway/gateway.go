// Package gateway defines the contract between a chat session and the hosted
// generative model: the generation parameters, the error taxonomy and the
// Gateway interface implemented by provider packages (see gateway/gemini).
package gateway

import (
	"context"

	"github.com/papercomputeco/apoteker/pkg/chat"
)

// Gateway issues one synchronous request per user turn to an external
// generative-model service. Implementations are stateless with respect to the
// conversation: the caller owns the history and records the reply.
type Gateway interface {
	// Send primes a model session with prior, submits text as the next user
	// turn and returns the generated reply verbatim.
	//
	// Errors are either ErrEmptyResponse or a *TransportError. Send makes a
	// single attempt and never retries.
	Send(ctx context.Context, prior []chat.Turn, text string) (string, error)

	// Close releases the underlying client.
	Close() error
}
