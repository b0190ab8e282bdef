package spend

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SpendTracker records and queries paid AI spend events.
type SpendTracker struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSpendTracker creates a new SpendTracker backed by the given database.
func NewSpendTracker(db *gorm.DB) *SpendTracker {
	return &SpendTracker{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecordSpend persists a SpendEvent and returns it.
func (t *SpendTracker) RecordSpend(ctx context.Context, input RecordSpendInput) (*SpendEvent, error) {
	now := t.now()

	event := SpendEvent{
		Provider:      input.Provider,
		Model:         input.Model,
		Agent:         input.Agent,
		InputTokens:   input.InputTokens,
		OutputTokens:  input.OutputTokens,
		EstimatedCost: input.EstimatedCost,
		DurationMs:    input.DurationMs,
		DayKey:        now.Format("2006-01-02"),
		MonthKey:      now.Format("2006-01"),
	}

	if err := t.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("spend: failed to create event: %w", err)
	}
	return &event, nil
}

func (t *SpendTracker) sumWhere(ctx context.Context, column, key string) (float64, int, error) {
	var result struct {
		Total float64
		Count int
	}

	err := t.db.WithContext(ctx).Model(&SpendEvent{}).
		Select("COALESCE(SUM(estimated_cost), 0) as total, COUNT(*) as count").
		Where(column+" = ?", key).
		Scan(&result).Error
	if err != nil {
		return 0, 0, fmt.Errorf("spend: %s query failed: %w", column, err)
	}
	return result.Total, result.Count, nil
}

// GetDailySpend returns the total estimated cost and event count on a given day.
func (t *SpendTracker) GetDailySpend(ctx context.Context, day time.Time) (float64, int, error) {
	return t.sumWhere(ctx, "day_key", day.UTC().Format("2006-01-02"))
}

// GetMonthlySpend returns the total estimated cost and event count in a given month.
func (t *SpendTracker) GetMonthlySpend(ctx context.Context, month time.Time) (float64, int, error) {
	return t.sumWhere(ctx, "month_key", month.UTC().Format("2006-01"))
}

// GetSummary returns a combined daily and monthly spend summary for the current period.
func (t *SpendTracker) GetSummary(ctx context.Context) (*SpendSummary, error) {
	now := t.now()

	dailySpend, dailyCount, err := t.GetDailySpend(ctx, now)
	if err != nil {
		return nil, err
	}

	monthlySpend, monthlyCount, err := t.GetMonthlySpend(ctx, now)
	if err != nil {
		return nil, err
	}

	return &SpendSummary{
		DailySpend:   dailySpend,
		MonthlySpend: monthlySpend,
		DailyCount:   dailyCount,
		MonthlyCount: monthlyCount,
	}, nil
}

// GetBreakdown returns this month's spend grouped by "model" or "agent".
func (t *SpendTracker) GetBreakdown(ctx context.Context, groupBy string) ([]SpendBreakdownItem, error) {
	groupCol := "model"
	if groupBy == "agent" {
		groupCol = "agent"
	}

	var items []SpendBreakdownItem
	err := t.db.WithContext(ctx).Model(&SpendEvent{}).
		Select(
			groupCol+` as "key", `+
				"COALESCE(SUM(estimated_cost), 0) as estimated_cost, "+
				"COALESCE(SUM(input_tokens), 0) as input_tokens, "+
				"COALESCE(SUM(output_tokens), 0) as output_tokens, "+
				"COUNT(*) as count").
		Where("month_key = ?", t.now().Format("2006-01")).
		Group(groupCol).
		Order("estimated_cost DESC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("spend: breakdown query failed: %w", err)
	}
	return items, nil
}
