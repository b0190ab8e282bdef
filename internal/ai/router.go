package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"imob-crm/internal/budget"
	"imob-crm/internal/logging"
	"imob-crm/internal/metrics"
	"imob-crm/internal/pricing"
	"imob-crm/internal/spend"

	"go.uber.org/zap"
)

// SpendRecorder persists an audit row for every successful paid call
type SpendRecorder interface {
	RecordSpend(ctx context.Context, input spend.RecordSpendInput) (*spend.SpendEvent, error)
}

// Router walks an ordered chain of provider tiers. Free tiers are tried in
// order and recovered locally on failure; the first paid tier reached is
// gated by the spend ceiling and its errors go back to the caller.
type Router struct {
	tiers    []Tier
	enforcer *budget.Enforcer
	recorder SpendRecorder
	log      *zap.Logger

	mu    sync.Mutex
	usage map[Provider]*ProviderUsage
}

// RouterOption customizes a Router
type RouterOption func(*Router)

// WithSpendRecorder persists paid calls through rec.
func WithSpendRecorder(rec SpendRecorder) RouterOption {
	return func(r *Router) { r.recorder = rec }
}

// NewRouter creates a router over tiers, in fallback order. enforcer guards
// every paid tier.
func NewRouter(tiers []Tier, enforcer *budget.Enforcer, opts ...RouterOption) *Router {
	r := &Router{
		tiers:    tiers,
		enforcer: enforcer,
		log:      logging.Named("ai.router"),
		usage:    make(map[Provider]*ProviderUsage, len(tiers)),
	}
	for _, t := range tiers {
		r.usage[t.Provider] = &ProviderUsage{Provider: t.Provider}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chat answers userMessage under the systemPrompt instruction.
func (r *Router) Chat(ctx context.Context, systemPrompt, userMessage string, opts Options) (*Response, error) {
	return r.route(ctx, &Request{SystemPrompt: systemPrompt, Prompt: userMessage}, opts)
}

// Generate answers a single freeform prompt. Set opts.JSONOutput to request
// the provider's structured JSON mode.
func (r *Router) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	return r.route(ctx, &Request{Prompt: prompt}, opts)
}

func (r *Router) route(ctx context.Context, req *Request, opts Options) (*Response, error) {
	opts = opts.withDefaults()
	req.Temperature = *opts.Temperature
	req.MaxTokens = opts.MaxTokens
	req.JSONOutput = opts.JSONOutput

	var lastErr error
	var lastFree Provider
	for _, tier := range r.chain(opts.PreferredProvider) {
		if tier.State != StateEnabled {
			continue
		}
		if lastFree != "" {
			metrics.Get().RecordAIFallback(string(lastFree), string(tier.Provider))
		}

		if !tier.Paid {
			resp, err := r.callFree(ctx, tier, req, opts)
			if err == nil {
				return resp, nil
			}
			r.log.Warn("free provider failed, falling back",
				zap.String("provider", string(tier.Provider)),
				zap.String("agent", opts.Agent),
				zap.Error(err),
			)
			lastErr = err
			lastFree = tier.Provider
			continue
		}

		// The first enabled paid tier is terminal: success, budget refusal
		// and provider errors all end the call here.
		return r.callPaid(ctx, tier, req, opts)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, lastErr)
	}
	return nil, ErrNoProvider
}

// chain returns the tiers starting at preferred. An unknown or empty
// preference starts at the head of the list.
func (r *Router) chain(preferred Provider) []Tier {
	if preferred == "" {
		return r.tiers
	}
	for i, t := range r.tiers {
		if t.Provider == preferred {
			return r.tiers[i:]
		}
	}
	return r.tiers
}

func (r *Router) callFree(ctx context.Context, tier Tier, req *Request, opts Options) (*Response, error) {
	call := *req
	call.Model = tier.DefaultModel

	start := time.Now()
	completion, err := tier.Client.Complete(ctx, &call)
	duration := time.Since(start)
	if err != nil {
		r.recordUsage(tier.Provider, call.Model, opts.Agent, duration, 0, 0, 0, err)
		return nil, err
	}

	model := completion.Model
	if model == "" {
		model = call.Model
	}
	r.recordUsage(tier.Provider, model, opts.Agent, duration, completion.InputTokens, completion.OutputTokens, 0, nil)

	return &Response{
		Content:       completion.Content,
		Provider:      tier.Provider,
		Model:         model,
		EstimatedCost: 0,
		InputTokens:   completion.InputTokens,
		OutputTokens:  completion.OutputTokens,
		Duration:      duration,
	}, nil
}

func (r *Router) callPaid(ctx context.Context, tier Tier, req *Request, opts Options) (*Response, error) {
	if _, err := r.enforcer.PreAuthorize(ctx); err != nil {
		if errors.Is(err, budget.ErrExceeded) {
			metrics.Get().RecordBudgetRejection()
			r.log.Warn("paid provider skipped, monthly ceiling reached",
				zap.String("provider", string(tier.Provider)),
				zap.Float64("ceiling", r.enforcer.Limit()),
			)
		}
		return nil, err
	}

	call := *req
	call.Model = opts.FallbackModel
	if call.Model == "" {
		call.Model = tier.DefaultModel
	}
	if call.Model == "" {
		call.Model = DefaultFallbackModel
	}

	start := time.Now()
	completion, err := tier.Client.Complete(ctx, &call)
	duration := time.Since(start)
	if err != nil {
		r.recordUsage(tier.Provider, call.Model, opts.Agent, duration, 0, 0, 0, err)
		return nil, fmt.Errorf("%s: %w", tier.Provider, err)
	}

	inputTokens, outputTokens := completion.InputTokens, completion.OutputTokens
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens = pricing.EstimateTokens(call.SystemPrompt + call.Prompt)
		outputTokens = pricing.EstimateTokens(completion.Content)
	}
	prices := tier.Prices
	if prices == nil {
		prices = pricing.OpenAI()
	}
	cost := prices.Cost(call.Model, inputTokens, outputTokens)

	total, err := r.enforcer.Charge(ctx, cost)
	if err != nil {
		r.log.Error("failed to charge spend counter", zap.Float64("cost", cost), zap.Error(err))
	} else {
		metrics.Get().SetPaidSpend(total)
	}

	if r.recorder != nil {
		if _, err := r.recorder.RecordSpend(ctx, spend.RecordSpendInput{
			Provider:      string(tier.Provider),
			Model:         call.Model,
			Agent:         opts.Agent,
			InputTokens:   inputTokens,
			OutputTokens:  outputTokens,
			EstimatedCost: cost,
			DurationMs:    int(duration.Milliseconds()),
		}); err != nil {
			r.log.Error("failed to record spend event", zap.Error(err))
		}
	}

	r.recordUsage(tier.Provider, call.Model, opts.Agent, duration, inputTokens, outputTokens, cost, nil)
	r.log.Info("paid provider answered",
		zap.String("provider", string(tier.Provider)),
		zap.String("model", call.Model),
		zap.String("agent", opts.Agent),
		zap.Float64("estimated_cost", cost),
		zap.Float64("spend_total", total),
	)

	return &Response{
		Content:       completion.Content,
		Provider:      tier.Provider,
		Model:         call.Model,
		EstimatedCost: cost,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		Duration:      duration,
	}, nil
}

func (r *Router) recordUsage(provider Provider, model, agent string, duration time.Duration, in, out int, cost float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.Get().RecordAIRequest(string(provider), model, agent, status, duration, in, out, cost)

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.usage[provider]
	if !ok {
		u = &ProviderUsage{Provider: provider}
		r.usage[provider] = u
	}
	u.RequestCount++
	if err != nil {
		u.ErrorCount++
	}
	u.TotalTokens += int64(in + out)
	u.TotalCost += cost
	// running mean over all requests
	u.AvgLatency += (float64(duration.Milliseconds()) - u.AvgLatency) / float64(u.RequestCount)
	u.LastUsed = time.Now()
}

// Status reports provider availability and spend against the ceiling.
func (r *Router) Status(ctx context.Context) (*Status, error) {
	budgetStatus, err := r.enforcer.Status(ctx)
	if err != nil {
		return nil, err
	}

	s := &Status{
		CurrentSpend: budgetStatus.CurrentUSD,
		Ceiling:      budgetStatus.LimitUSD,
		WithinLimit:  budgetStatus.WithinLimit,
	}
	for _, t := range r.tiers {
		if t.State != StateEnabled {
			continue
		}
		if t.Paid {
			s.PaidProviderAvailable = true
		} else {
			s.FreeProviderAvailable = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tiers {
		if u, ok := r.usage[t.Provider]; ok {
			snapshot := *u
			s.Providers = append(s.Providers, &snapshot)
		}
	}
	return s, nil
}
