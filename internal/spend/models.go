package spend

import "time"

// SpendEvent is a GORM model for the spend_events table. One row per
// successful paid-provider call.
type SpendEvent struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	Provider      string    `gorm:"not null" json:"provider"`
	Model         string    `gorm:"not null;index" json:"model"`
	Agent         string    `json:"agent,omitempty"`
	InputTokens   int       `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens  int       `gorm:"not null;default:0" json:"output_tokens"`
	EstimatedCost float64   `gorm:"not null;default:0;type:numeric(12,8)" json:"estimated_cost"`
	DurationMs    int       `gorm:"default:0" json:"duration_ms"`
	DayKey        string    `gorm:"not null;index" json:"day_key"`
	MonthKey      string    `gorm:"not null;index" json:"month_key"`
}

func (SpendEvent) TableName() string { return "spend_events" }

// SpendSummary is returned by summary endpoints
type SpendSummary struct {
	DailySpend   float64 `json:"daily_spend"`
	MonthlySpend float64 `json:"monthly_spend"`
	DailyCount   int     `json:"daily_count"`
	MonthlyCount int     `json:"monthly_count"`
}

// SpendBreakdownItem represents a row in a breakdown query
type SpendBreakdownItem struct {
	Key           string  `json:"key"`
	EstimatedCost float64 `json:"estimated_cost"`
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	Count         int     `json:"count"`
}

// RecordSpendInput contains all data needed to record a spend event
type RecordSpendInput struct {
	Provider      string
	Model         string
	Agent         string
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
	DurationMs    int
}
