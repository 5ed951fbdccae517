package chat

import (
	"context"
	"fmt"
)

// Sender delivers a new user message to the model, primed with the turns
// that came before it, and returns the generated reply.
type Sender interface {
	Send(ctx context.Context, prior []Turn, text string) (string, error)
}

// Exchange runs one round trip against the model:
//
//  1. the user text is recorded as a user turn
//  2. sender receives every turn prior to it plus the text
//  3. on success the reply is recorded as a model turn and returned
//
// When the sender fails, the user turn stays in the history and no model turn
// is added, so the person can simply resubmit. Validation errors on the user
// text are returned before the history is touched.
func Exchange(ctx context.Context, h *History, sender Sender, text string) (string, error) {
	userTurn, err := UserTurn(text)
	if err != nil {
		return "", err
	}

	prior := h.All()
	if err := h.Append(userTurn); err != nil {
		return "", err
	}

	reply, err := sender.Send(ctx, prior, text)
	if err != nil {
		return "", err
	}

	modelTurn, err := ModelTurn(reply)
	if err != nil {
		return "", fmt.Errorf("recording model reply: %w", err)
	}
	if err := h.Append(modelTurn); err != nil {
		return "", err
	}

	return reply, nil
}

// SenderFunc adapts a plain function to the Sender interface.
type SenderFunc func(ctx context.Context, prior []Turn, text string) (string, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, prior []Turn, text string) (string, error) {
	return f(ctx, prior, text)
}
