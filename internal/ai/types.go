package ai

import (
	"context"
	"errors"
	"time"

	"imob-crm/internal/budget"
	"imob-crm/internal/pricing"
)

// Provider identifies a generative-text backend
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Defaults applied when Options leaves a field unset.
const (
	DefaultTemperature  float32 = 0.7
	DefaultMaxTokens            = 500
	DefaultGeminiModel          = "gemini-2.0-flash"
	DefaultFallbackModel        = "gpt-4o-mini"
)

var (
	// ErrBudgetExceeded is returned when the paid provider's monthly ceiling
	// has been reached. Nothing is dispatched to the paid provider.
	ErrBudgetExceeded = budget.ErrExceeded

	// ErrNoProvider is returned when no enabled provider could answer.
	ErrNoProvider = errors.New("no AI provider available")
)

// Options tunes a single router call
type Options struct {
	// Temperature is nil for DefaultTemperature. Use Temperature(0) for
	// deterministic output.
	Temperature *float32
	MaxTokens   int
	// PreferredProvider starts the fallback chain at this provider. Forcing
	// the paid provider skips the free one entirely.
	PreferredProvider Provider
	// FallbackModel is used only when the paid provider is invoked.
	FallbackModel string
	// JSONOutput asks the provider for its structured JSON response mode.
	JSONOutput bool
	// Agent labels the caller for spend accounting ("coach", "qualifier", ...).
	Agent string
}

// Temperature returns a pointer for Options.Temperature
func Temperature(t float32) *float32 {
	return &t
}

func (o Options) withDefaults() Options {
	if o.Temperature == nil {
		o.Temperature = Temperature(DefaultTemperature)
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// Request is what a Client sends to its provider
type Request struct {
	SystemPrompt string
	Prompt       string
	Model        string
	Temperature  float32
	MaxTokens    int
	JSONOutput   bool
}

// Completion is a provider's raw answer. Token counts are zero when the
// provider did not report usage.
type Completion struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client issues a single request to one provider and returns plain text
type Client interface {
	Complete(ctx context.Context, req *Request) (*Completion, error)
}

// Response is the router's answer for one call
type Response struct {
	Content       string        `json:"content"`
	Provider      Provider      `json:"provider"`
	Model         string        `json:"model"`
	EstimatedCost float64       `json:"estimated_cost"`
	InputTokens   int           `json:"input_tokens"`
	OutputTokens  int           `json:"output_tokens"`
	Duration      time.Duration `json:"duration"`
}

// TierState is the availability of a provider, resolved once at startup
type TierState int

const (
	StateDisabled TierState = iota
	StateEnabled
)

func (s TierState) String() string {
	if s == StateEnabled {
		return "enabled"
	}
	return "disabled"
}

// Tier is one entry in the router's ordered fallback chain.
type Tier struct {
	Provider     Provider
	State        TierState
	Client       Client
	Paid         bool
	DefaultModel string
	// Prices is consulted only for paid tiers.
	Prices *pricing.Table
}

// FreeTier builds the no-cost tier. A nil client yields a disabled tier.
func FreeTier(provider Provider, client Client, model string) Tier {
	t := Tier{Provider: provider, Client: client, DefaultModel: model}
	if client != nil {
		t.State = StateEnabled
	}
	return t
}

// PaidTier builds a metered tier. A nil client yields a disabled tier.
func PaidTier(provider Provider, client Client, model string, prices *pricing.Table) Tier {
	t := Tier{Provider: provider, Client: client, Paid: true, DefaultModel: model, Prices: prices}
	if client != nil {
		t.State = StateEnabled
	}
	return t
}

// ProvidersConfig carries the credentials used to resolve the default tiers
type ProvidersConfig struct {
	GeminiAPIKey       string
	GeminiModel        string
	OpenAIAPIKey       string
	OpenAIDefaultModel string
}

// DefaultTiers resolves the standard chain: Gemini (free) then OpenAI (paid).
// A provider whose key is empty is present but disabled.
func DefaultTiers(cfg ProvidersConfig) []Tier {
	geminiModel := cfg.GeminiModel
	if geminiModel == "" {
		geminiModel = DefaultGeminiModel
	}
	openAIModel := cfg.OpenAIDefaultModel
	if openAIModel == "" {
		openAIModel = DefaultFallbackModel
	}

	var gemini, openai Client
	if cfg.GeminiAPIKey != "" {
		gemini = NewGeminiClient(cfg.GeminiAPIKey)
	}
	if cfg.OpenAIAPIKey != "" {
		openai = NewOpenAIClient(cfg.OpenAIAPIKey)
	}

	return []Tier{
		FreeTier(ProviderGemini, gemini, geminiModel),
		PaidTier(ProviderOpenAI, openai, openAIModel, pricing.OpenAI()),
	}
}

// ProviderUsage tracks usage statistics for a provider
type ProviderUsage struct {
	Provider     Provider  `json:"provider"`
	RequestCount int64     `json:"request_count"`
	ErrorCount   int64     `json:"error_count"`
	TotalTokens  int64     `json:"total_tokens"`
	TotalCost    float64   `json:"total_cost"`
	AvgLatency   float64   `json:"avg_latency"`
	LastUsed     time.Time `json:"last_used"`
}

// Status is the read-only router report used for display
type Status struct {
	FreeProviderAvailable bool             `json:"free_provider_available"`
	PaidProviderAvailable bool             `json:"paid_provider_available"`
	CurrentSpend          float64          `json:"current_spend"`
	Ceiling               float64          `json:"ceiling"`
	WithinLimit           bool             `json:"within_limit"`
	Providers             []*ProviderUsage `json:"providers"`
}
