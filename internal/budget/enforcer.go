// Package budget enforces the monthly spend ceiling on the paid AI provider.
package budget

import (
	"context"
	"errors"
	"fmt"

	"imob-crm/internal/spend"
)

// ErrExceeded is returned when the accumulated spend has reached the ceiling.
var ErrExceeded = errors.New("budget exceeded")

// Status reports spend against the ceiling
type Status struct {
	CurrentUSD   float64 `json:"current_spend"`
	LimitUSD     float64 `json:"ceiling"`
	RemainingUSD float64 `json:"remaining"`
	WithinLimit  bool    `json:"within_limit"`
}

// Enforcer checks spend against a ceiling before paid calls and charges the
// counter after them.
//
// PreAuthorize and Charge are separate steps, so two concurrent requests can
// both pass PreAuthorize before either charges. The ceiling is a best-effort
// cap, not a billing guarantee.
type Enforcer struct {
	counter  spend.Counter
	limitUSD float64
}

// NewEnforcer creates an enforcer over counter with the given ceiling in USD.
func NewEnforcer(counter spend.Counter, limitUSD float64) *Enforcer {
	return &Enforcer{counter: counter, limitUSD: limitUSD}
}

// PreAuthorize returns ErrExceeded when current spend >= ceiling.
func (e *Enforcer) PreAuthorize(ctx context.Context) (*Status, error) {
	status, err := e.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !status.WithinLimit {
		return status, fmt.Errorf("%w: monthly limit of $%.2f reached (current: $%.6f)", ErrExceeded, e.limitUSD, status.CurrentUSD)
	}
	return status, nil
}

// Charge adds cost to the counter.
func (e *Enforcer) Charge(ctx context.Context, cost float64) (float64, error) {
	return e.counter.Add(ctx, cost)
}

// Status returns the current spend and whether it is still below the ceiling.
func (e *Enforcer) Status(ctx context.Context) (*Status, error) {
	current, err := e.counter.Total(ctx)
	if err != nil {
		return nil, fmt.Errorf("budget: read spend: %w", err)
	}
	remaining := e.limitUSD - current
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		CurrentUSD:   current,
		LimitUSD:     e.limitUSD,
		RemainingUSD: remaining,
		WithinLimit:  current < e.limitUSD,
	}, nil
}

// Limit returns the configured ceiling.
func (e *Enforcer) Limit() float64 { return e.limitUSD }
