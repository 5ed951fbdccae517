// Package gemini implements gateway.Gateway on top of the Google Gemini API.
//
// Every Send starts a fresh chat session primed with the caller's history and
// submits exactly one message; nothing about the conversation is kept here.
package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/papercomputeco/apoteker/pkg/chat"
	"github.com/papercomputeco/apoteker/pkg/gateway"
	"github.com/papercomputeco/apoteker/pkg/metrics"
	"github.com/papercomputeco/apoteker/pkg/utils"
)

// chatSession is the part of *genai.ChatSession the gateway relies on.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gateway sends user turns to a Gemini model.
type Gateway struct {
	config  gateway.Config
	client  *genai.Client
	metrics *metrics.Metrics
	logger  *zap.Logger

	clientOpts []option.ClientOption

	// startChat opens a chat session primed with history.
	startChat func(history []*genai.Content) chatSession
}

// Option configures a Gateway created with New.
type Option func(*Gateway)

// WithMetrics records request outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithClientOptions passes extra options (endpoint, HTTP client) to the
// underlying genai client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(g *Gateway) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}

var _ gateway.Gateway = (*Gateway)(nil)

// New builds a Gateway authenticated with apiKey.
// It returns gateway.ErrMissingCredential for an empty key and a
// *gateway.InitError when the configuration or the client is unusable.
func New(ctx context.Context, apiKey string, cfg gateway.Config, logger *zap.Logger, opts ...Option) (*Gateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, gateway.ErrMissingCredential
	}
	if err := cfg.Validate(); err != nil {
		return nil, &gateway.InitError{Err: err}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, g.clientOpts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, &gateway.InitError{Err: err}
	}
	g.client = client

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)

	g.startChat = func(history []*genai.Content) chatSession {
		cs := model.StartChat()
		cs.History = history
		return cs
	}

	logger.Debug("gemini gateway ready",
		zap.String("model", cfg.Model),
		zap.Float32("temperature", cfg.Temperature),
		zap.Int32("max_output_tokens", cfg.MaxOutputTokens),
		zap.Duration("timeout", cfg.Timeout),
	)

	return g, nil
}

// Send primes a chat session with prior and submits text, waiting at most
// the configured timeout. It makes a single attempt.
func (g *Gateway) Send(ctx context.Context, prior []chat.Turn, text string) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	g.logger.Debug("sending message",
		zap.String("model", g.config.Model),
		zap.Int("message_count", len(prior)+1),
		zap.String("text", utils.Truncate(text, 64)),
	)

	cs := g.startChat(toContents(prior))
	resp, err := cs.SendMessage(ctx, genai.Text(text))
	elapsed := time.Since(start)

	if err != nil {
		terr := &gateway.TransportError{
			Err:      err,
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		}

		outcome := metrics.OutcomeTransport
		if terr.Timeout() {
			outcome = metrics.OutcomeTimeout
		}
		g.metrics.ObserveGateway(outcome, elapsed)

		g.logger.Warn("model request failed",
			zap.Error(err),
			zap.Bool("timeout", terr.Timeout()),
			zap.Duration("elapsed", elapsed),
		)
		return "", terr
	}

	reply := responseText(resp)
	if strings.TrimSpace(reply) == "" {
		g.metrics.ObserveGateway(metrics.OutcomeEmpty, elapsed)
		g.logger.Warn("model returned no text", zap.Duration("elapsed", elapsed))
		return "", gateway.ErrEmptyResponse
	}

	g.metrics.ObserveGateway(metrics.OutcomeSuccess, elapsed)
	g.logger.Debug("received reply",
		zap.Int("length", len(reply)),
		zap.Duration("elapsed", elapsed),
	)

	return reply, nil
}

// Close releases the genai client.
func (g *Gateway) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// toContents converts turns to genai contents. chat roles map directly onto
// Gemini's "user" and "model" roles.
func toContents(turns []chat.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, &genai.Content{
			Role:  string(t.Role),
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return contents
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
