package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"imob-crm/pkg/models"

	"gorm.io/gorm"
)

// NegotiationInput creates a negotiation
type NegotiationInput struct {
	LeadID        uint       `json:"lead_id"`
	PropertyID    *uint      `json:"property_id"`
	Stage         string     `json:"stage"`
	ProposalValue *float64   `json:"proposal_value"`
	NextAction    string     `json:"next_action"`
	NextActionAt  *time.Time `json:"next_action_at"`
}

// NegotiationUpdate edits a negotiation. Nil fields are left unchanged;
// stage changes go through MoveStage.
type NegotiationUpdate struct {
	PropertyID    *uint      `json:"property_id"`
	ProposalValue *float64   `json:"proposal_value"`
	NextAction    *string    `json:"next_action"`
	NextActionAt  *time.Time `json:"next_action_at"`
	LostReason    *string    `json:"lost_reason"`
}

// ActivityInput records a broker interaction
type ActivityInput struct {
	Kind        string     `json:"kind"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

// PipelineColumn is one stage of the kanban board
type PipelineColumn struct {
	Stage        string               `json:"stage"`
	Count        int                  `json:"count"`
	TotalValue   float64              `json:"total_value"`
	Negotiations []models.Negotiation `json:"negotiations"`
}

// NegotiationService manages the sales pipeline
type NegotiationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNegotiationService creates a NegotiationService
func NewNegotiationService(db *gorm.DB) *NegotiationService {
	return &NegotiationService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *NegotiationService) scoped(ctx context.Context, ownerID string) *gorm.DB {
	return s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
}

// List returns one page of the owner's negotiations, optionally in one stage
func (s *NegotiationService) List(ctx context.Context, ownerID, stage string, page Page) ([]models.Negotiation, int64, error) {
	if stage != "" && !models.ValidStage(stage) {
		return nil, 0, invalid("unknown stage %q", stage)
	}

	q := s.scoped(ctx, ownerID).Model(&models.Negotiation{})
	if stage != "" {
		q = q.Where("stage = ?", stage)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count negotiations: %w", err)
	}

	var negs []models.Negotiation
	err := page.apply(q).Preload("Lead").Preload("Property").
		Order("updated_at DESC, id DESC").Find(&negs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list negotiations: %w", err)
	}
	return negs, total, nil
}

// Pipeline groups every negotiation by stage, in board order
func (s *NegotiationService) Pipeline(ctx context.Context, ownerID string) ([]PipelineColumn, error) {
	var negs []models.Negotiation
	err := s.scoped(ctx, ownerID).Preload("Lead").Preload("Property").
		Order("updated_at DESC, id DESC").Find(&negs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}

	index := make(map[string]int, len(models.StageOrder))
	columns := make([]PipelineColumn, len(models.StageOrder))
	for i, stage := range models.StageOrder {
		index[stage] = i
		columns[i] = PipelineColumn{Stage: stage, Negotiations: []models.Negotiation{}}
	}
	for _, n := range negs {
		i, ok := index[n.Stage]
		if !ok {
			continue
		}
		col := &columns[i]
		col.Negotiations = append(col.Negotiations, n)
		col.Count++
		if n.ProposalValue != nil {
			col.TotalValue += *n.ProposalValue
		} else if n.Property != nil {
			col.TotalValue += n.Property.Price
		}
	}
	return columns, nil
}

func (s *NegotiationService) checkRefs(ctx context.Context, ownerID string, leadID uint, propertyID *uint) error {
	var n int64
	if err := s.scoped(ctx, ownerID).Model(&models.Lead{}).Where("id = ?", leadID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check lead: %w", err)
	}
	if n == 0 {
		return invalid("lead %d does not exist", leadID)
	}
	if propertyID == nil {
		return nil
	}
	if err := s.scoped(ctx, ownerID).Model(&models.Property{}).Where("id = ?", *propertyID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check property: %w", err)
	}
	if n == 0 {
		return invalid("property %d does not exist", *propertyID)
	}
	return nil
}

// Create opens a negotiation for one of the owner's leads
func (s *NegotiationService) Create(ctx context.Context, ownerID string, in NegotiationInput) (*models.Negotiation, error) {
	if in.LeadID == 0 {
		return nil, invalid("lead_id is required")
	}
	stage := in.Stage
	if stage == "" {
		stage = models.StageNewLead
	}
	if !models.ValidStage(stage) {
		return nil, invalid("unknown stage %q", stage)
	}
	if in.ProposalValue != nil && *in.ProposalValue < 0 {
		return nil, invalid("proposal_value must not be negative")
	}
	if err := s.checkRefs(ctx, ownerID, in.LeadID, in.PropertyID); err != nil {
		return nil, err
	}

	neg := &models.Negotiation{
		OwnerID:       ownerID,
		LeadID:        in.LeadID,
		PropertyID:    in.PropertyID,
		Stage:         stage,
		ProposalValue: in.ProposalValue,
		NextAction:    strings.TrimSpace(in.NextAction),
		NextActionAt:  in.NextActionAt,
	}
	if models.IsClosedStage(stage) {
		now := s.now()
		neg.ClosedAt = &now
	}
	if err := s.db.WithContext(ctx).Create(neg).Error; err != nil {
		return nil, fmt.Errorf("failed to create negotiation: %w", err)
	}
	return s.Get(ctx, ownerID, neg.ID)
}

// Get loads a negotiation with everything the assistant reads: lead,
// property, activities (newest first) and AI history (newest first).
func (s *NegotiationService) Get(ctx context.Context, ownerID string, id uint) (*models.Negotiation, error) {
	var neg models.Negotiation
	err := s.scoped(ctx, ownerID).
		Preload("Lead").
		Preload("Property").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("occurred_at DESC, id DESC") }).
		Preload("AIHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		First(&neg, id).Error
	if err != nil {
		return nil, notFound("negotiation", err)
	}
	return &neg, nil
}

func (s *NegotiationService) load(ctx context.Context, ownerID string, id uint) (*models.Negotiation, error) {
	var neg models.Negotiation
	if err := s.scoped(ctx, ownerID).First(&neg, id).Error; err != nil {
		return nil, notFound("negotiation", err)
	}
	return &neg, nil
}

// Update applies the non-nil fields of in
func (s *NegotiationService) Update(ctx context.Context, ownerID string, id uint, in NegotiationUpdate) (*models.Negotiation, error) {
	neg, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.PropertyID != nil {
		if *in.PropertyID == 0 {
			updates["property_id"] = nil
		} else {
			if err := s.checkRefs(ctx, ownerID, neg.LeadID, in.PropertyID); err != nil {
				return nil, err
			}
			updates["property_id"] = *in.PropertyID
		}
	}
	if in.ProposalValue != nil {
		if *in.ProposalValue < 0 {
			return nil, invalid("proposal_value must not be negative")
		}
		updates["proposal_value"] = *in.ProposalValue
	}
	if in.NextAction != nil {
		updates["next_action"] = strings.TrimSpace(*in.NextAction)
	}
	if in.NextActionAt != nil {
		updates["next_action_at"] = *in.NextActionAt
	}
	if in.LostReason != nil {
		updates["lost_reason"] = strings.TrimSpace(*in.LostReason)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(neg).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update negotiation: %w", err)
		}
	}
	return s.Get(ctx, ownerID, id)
}

// MoveStage moves a negotiation to stage. Closing stamps closed_at and
// reopening clears it; a won deal marks the lead convertido.
func (s *NegotiationService) MoveStage(ctx context.Context, ownerID string, id uint, stage, lostReason string) (*models.Negotiation, error) {
	if !models.ValidStage(stage) {
		return nil, invalid("unknown stage %q", stage)
	}
	neg, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"stage": stage}
		switch {
		case models.IsClosedStage(stage) && !models.IsClosedStage(neg.Stage):
			updates["closed_at"] = s.now()
		case !models.IsClosedStage(stage):
			updates["closed_at"] = nil
		}
		if stage == models.StageLost {
			updates["lost_reason"] = strings.TrimSpace(lostReason)
		} else if neg.Stage == models.StageLost {
			updates["lost_reason"] = ""
		}
		if err := tx.Model(neg).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to move negotiation: %w", err)
		}

		if stage == models.StageWon {
			err := tx.Model(&models.Lead{}).
				Where("id = ? AND owner_id = ?", neg.LeadID, ownerID).
				Update("status", models.LeadStatusConverted).Error
			if err != nil {
				return fmt.Errorf("failed to convert lead: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

// Delete soft-deletes a negotiation
func (s *NegotiationService) Delete(ctx context.Context, ownerID string, id uint) error {
	res := s.scoped(ctx, ownerID).Delete(&models.Negotiation{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete negotiation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("negotiation %w", ErrNotFound)
	}
	return nil
}

// AddActivity records an interaction on a negotiation
func (s *NegotiationService) AddActivity(ctx context.Context, ownerID string, negotiationID uint, in ActivityInput) (*models.Activity, error) {
	if !models.ValidActivityKind(in.Kind) {
		return nil, invalid("unknown activity kind %q", in.Kind)
	}
	neg, err := s.load(ctx, ownerID, negotiationID)
	if err != nil {
		return nil, err
	}

	act := &models.Activity{
		NegotiationID: neg.ID,
		Kind:          in.Kind,
		Description:   strings.TrimSpace(in.Description),
		OccurredAt:    s.now(),
	}
	if in.OccurredAt != nil {
		act.OccurredAt = in.OccurredAt.UTC()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(act).Error; err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}
		// bump updated_at so the negotiation floats to the top of its column
		return tx.Model(neg).Update("updated_at", s.now()).Error
	})
	if err != nil {
		return nil, err
	}
	return act, nil
}

// Activities lists a negotiation's activities, newest first
func (s *NegotiationService) Activities(ctx context.Context, ownerID string, negotiationID uint) ([]models.Activity, error) {
	if _, err := s.load(ctx, ownerID, negotiationID); err != nil {
		return nil, err
	}
	var acts []models.Activity
	err := s.db.WithContext(ctx).Where("negotiation_id = ?", negotiationID).
		Order("occurred_at DESC, id DESC").Find(&acts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return acts, nil
}

// AIHistory lists a negotiation's assistant exchanges, newest first
func (s *NegotiationService) AIHistory(ctx context.Context, ownerID string, negotiationID uint) ([]models.AIHistory, error) {
	if _, err := s.load(ctx, ownerID, negotiationID); err != nil {
		return nil, err
	}
	var hist []models.AIHistory
	err := s.db.WithContext(ctx).Where("negotiation_id = ?", negotiationID).
		Order("created_at DESC, id DESC").Find(&hist).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ai history: %w", err)
	}
	return hist, nil
}
