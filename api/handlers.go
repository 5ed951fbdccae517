package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/apoteker/pkg/chat"
	"github.com/papercomputeco/apoteker/pkg/gateway"
	"github.com/papercomputeco/apoteker/pkg/session"
	"github.com/papercomputeco/apoteker/pkg/utils"
)

const (
	// MsgEmptyReply is shown when the model answered without text.
	MsgEmptyReply = "Maaf, saya tidak bisa memberikan balasan."

	// MsgTransport is shown above the detail of a failed model request.
	MsgTransport = "Maaf, terjadi kesalahan saat berkomunikasi dengan Gemini:"

	// MsgBusy is shown when a message arrives while the previous one is
	// still being answered.
	MsgBusy = "Masih membalas pesan sebelumnya, mohon tunggu."
)

// Message is one transcript bubble. Role is "user" or "assistant".
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// SessionResponse describes the widget page and the current transcript.
type SessionResponse struct {
	Title    string    `json:"title"`
	Heading  string    `json:"heading"`
	Subtitle string    `json:"subtitle"`
	Model    string    `json:"model"`
	Busy     bool      `json:"busy"`
	Messages []Message `json:"messages"`
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse is returned after a successful exchange.
type MessageResponse struct {
	Reply    string    `json:"reply"`
	Messages []Message `json:"messages"`
}

// ErrorResponse is returned for failed requests. Messages carries the
// recorded transcript whenever the session was resolved, so the widget can
// drop a bubble for text that was never recorded.
type ErrorResponse struct {
	Error    string    `json:"error"`
	Detail   string    `json:"detail,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleGetSession returns the page text and transcript for the caller's
// session, creating a freshly seeded one if needed.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess := s.resolveSession(c)

	return c.JSON(SessionResponse{
		Title:    PageTitle,
		Heading:  Heading,
		Subtitle: Greeting,
		Model:    s.config.Model,
		Busy:     sess.Busy(),
		Messages: toMessages(sess.Turns()),
	})
}

// handlePostMessage runs one exchange for the caller's session.
func (s *Server) handlePostMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	sess := s.resolveSession(c)

	s.logger.Debug("user message",
		zap.String("session", sess.ID),
		zap.String("text", utils.Truncate(req.Text, 64)),
	)

	reply, err := sess.Exchange(c.UserContext(), s.sender, req.Text)
	turns := sess.Turns()

	if err != nil {
		// Text was validated above, so anything but ErrBusy recorded the user turn.
		if !errors.Is(err, session.ErrBusy) {
			s.metrics.TurnAppended(string(chat.RoleUser))
		}
		return s.exchangeError(c, sess, err, turns)
	}

	s.metrics.TurnAppended(string(chat.RoleUser))
	s.metrics.TurnAppended(string(chat.RoleModel))

	return c.JSON(MessageResponse{
		Reply:    reply,
		Messages: toMessages(turns),
	})
}

func (s *Server) exchangeError(c *fiber.Ctx, sess *session.Session, err error, turns []chat.Turn) error {
	switch {
	case errors.Is(err, session.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:    MsgBusy,
			Messages: toMessages(turns),
		})

	case errors.Is(err, gateway.ErrEmptyResponse), errors.Is(err, chat.ErrEmptyText):
		s.logger.Warn("empty model reply", zap.String("session", sess.ID))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:    MsgEmptyReply,
			Messages: toMessages(turns),
		})

	case gateway.IsTurnError(err):
		s.logger.Error("model request failed", zap.String("session", sess.ID), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:    MsgTransport,
			Detail:   detail(err),
			Messages: toMessages(turns),
		})

	default:
		s.logger.Error("exchange failed", zap.String("session", sess.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:    MsgTransport,
			Detail:   err.Error(),
			Messages: toMessages(turns),
		})
	}
}

// resolveSession resolves the caller's session from its cookie and refreshes the
// cookie when a new session was created.
func (s *Server) resolveSession(c *fiber.Ctx) *session.Session {
	sess, created := s.sessions.GetOrCreate(c.Cookies(SessionCookie))
	if created {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		s.metrics.SetActiveSessions(s.sessions.Len())
	}
	return sess
}

// detail returns the provider's message without the gateway's own prefix.
func detail(err error) string {
	var terr *gateway.TransportError
	if errors.As(err, &terr) && terr.Err != nil {
		return terr.Err.Error()
	}
	return err.Error()
}

// toMessages renders turns as transcript bubbles. The seed pair is rendered
// like every other turn.
func toMessages(turns []chat.Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == chat.RoleModel {
			role = "assistant"
		}
		out = append(out, Message{Role: role, Text: t.Text})
	}
	return out
}
