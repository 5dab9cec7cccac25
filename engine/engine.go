// Package engine talks to the external text-translation engine. A Client
// owns the batch contract (blank filtering, positional re-expansion,
// congruence checks); a Backend performs one request/response exchange,
// either by spawning the engine process or in-process.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/minios-linux/catalogtx/logging"
)

// Translator translates an ordered batch of texts. The result has the same
// length as texts and blank inputs come back as empty strings.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// Request is the payload sent to the engine.
type Request struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
}

// Response is the payload read back from the engine. Exactly one of
// TranslatedTexts or Error is expected.
type Response struct {
	TranslatedTexts []string `json:"translated_texts,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Backend performs a single exchange with an engine. Implementations return
// *Error for every failure.
type Backend interface {
	Exchange(ctx context.Context, req Request) (Response, error)
}

// Client implements Translator on top of a Backend.
type Client struct {
	backend Backend
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a Client that sends batches through backend.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{backend: backend, logger: logging.NoOp()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TranslateBatch sends the non-blank entries of texts as one request and maps
// the results back onto their original positions. When every entry is blank
// the backend is not called.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	compact, positions := Compact(texts)
	if len(compact) == 0 {
		return make([]string, len(texts)), nil
	}

	c.logger.Debug("engine batch", "source", source, "target", target, "texts", len(compact), "blank", len(texts)-len(compact))

	resp, err := c.backend.Exchange(ctx, Request{Texts: compact, SourceLang: source, TargetLang: target})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &Error{Kind: KindEngine, Source: source, Target: target, Message: resp.Error}
	}
	if len(resp.TranslatedTexts) != len(compact) {
		return nil, &Error{
			Kind:    KindMalformed,
			Source:  source,
			Target:  target,
			Message: fmt.Sprintf("got %d translations, expected %d", len(resp.TranslatedTexts), len(compact)),
		}
	}
	return Expand(resp.TranslatedTexts, positions, len(texts)), nil
}

// Compact drops blank and whitespace-only entries and returns the kept
// entries with their original indices.
func Compact(texts []string) (kept []string, positions []int) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		kept = append(kept, t)
		positions = append(positions, i)
	}
	return kept, positions
}

// Expand writes values[i] to positions[i] of a new slice of length n. Every
// other position is the empty string.
func Expand(values []string, positions []int, n int) []string {
	out := make([]string, n)
	for i, pos := range positions {
		if i < len(values) && pos >= 0 && pos < n {
			out[pos] = values[i]
		}
	}
	return out
}
