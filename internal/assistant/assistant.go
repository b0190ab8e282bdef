// Package assistant builds the prompts behind the broker's AI features and
// turns provider answers into domain results. Every feature degrades to a
// fixed answer when the provider chain fails; no provider error escapes.
package assistant

import (
	"context"

	"imob-crm/internal/ai"
	"imob-crm/internal/logging"
	"imob-crm/internal/metrics"

	"go.uber.org/zap"
)

// Generator is the provider router as seen by the prompt builders
type Generator interface {
	Chat(ctx context.Context, systemPrompt, userMessage string, opts ai.Options) (*ai.Response, error)
	Generate(ctx context.Context, prompt string, opts ai.Options) (*ai.Response, error)
}

// Result is one builder exchange. Response is nil when the fixed fallback
// answer was used, and Err holds the provider error behind it.
type Result struct {
	Content      string
	SystemPrompt string
	UserPrompt   string
	Response     *ai.Response
	Err          error
}

// Fallback reports whether Content is the fixed fallback answer.
func (r *Result) Fallback() bool { return r.Response == nil }

// Prompt joins both prompts for history records.
func (r *Result) Prompt() string {
	if r.SystemPrompt == "" {
		return r.UserPrompt
	}
	return r.SystemPrompt + "\n\n---\n\n" + r.UserPrompt
}

// Assistant holds the prompt builders
type Assistant struct {
	gen Generator
	log *zap.Logger
}

// New creates an Assistant backed by gen
func New(gen Generator) *Assistant {
	return &Assistant{gen: gen, log: logging.Named("assistant")}
}

// chat runs one Chat call and substitutes fallback on any error.
func (a *Assistant) chat(ctx context.Context, agent, system, user, fallback string, opts ai.Options) *Result {
	opts.Agent = agent
	res := &Result{SystemPrompt: system, UserPrompt: user}

	resp, err := a.gen.Chat(ctx, system, user, opts)
	if err != nil {
		a.degrade(agent, err)
		res.Content = fallback
		res.Err = err
		return res
	}
	res.Content = resp.Content
	res.Response = resp
	return res
}

func (a *Assistant) degrade(agent string, err error) {
	metrics.Get().RecordAssistantFallback(agent)
	a.log.Warn("assistant answered with fallback",
		zap.String("agent", agent),
		zap.Error(err),
	)
}
