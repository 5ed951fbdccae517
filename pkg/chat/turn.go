// Package chat holds the conversation state for a single interactive session:
// the ordered turns exchanged with the model, seeded with the apoteker persona.
package chat

import (
	"errors"
	"strings"
)

// Role tags who produced a turn.
type Role string

const (
	// RoleUser is a turn typed by the person chatting.
	RoleUser Role = "user"

	// RoleModel is a turn generated by the model.
	RoleModel Role = "model"
)

var (
	// ErrInvalidRole is returned when a turn carries a role other than
	// RoleUser or RoleModel.
	ErrInvalidRole = errors.New("invalid turn role")

	// ErrEmptyText is returned when a turn has no text.
	ErrEmptyText = errors.New("turn text cannot be empty")
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Turn is one message in the conversation. Turns are values and are never
// modified after creation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// NewTurn creates a validated turn.
func NewTurn(role Role, text string) (Turn, error) {
	t := Turn{Role: role, Text: text}
	if err := t.Validate(); err != nil {
		return Turn{}, err
	}
	return t, nil
}

// UserTurn is a convenience for NewTurn(RoleUser, text).
func UserTurn(text string) (Turn, error) {
	return NewTurn(RoleUser, text)
}

// ModelTurn is a convenience for NewTurn(RoleModel, text).
func ModelTurn(text string) (Turn, error) {
	return NewTurn(RoleModel, text)
}

// Validate checks the role tag and that the text is not blank.
func (t Turn) Validate() error {
	if !t.Role.Valid() {
		return ErrInvalidRole
	}
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyText
	}
	return nil
}
