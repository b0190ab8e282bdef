package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"imob-crm/internal/profile"
	"imob-crm/pkg/models"

	"gorm.io/gorm"
)

// LeadInput carries lead fields. Nil fields are left unchanged on update.
type LeadInput struct {
	Name        *string  `json:"name"`
	Email       *string  `json:"email"`
	Phone       *string  `json:"phone"`
	Source      *string  `json:"source"`
	Status      *string  `json:"status"`
	Notes       *string  `json:"notes"`
	Finalidade  *string  `json:"finalidade"`
	Orcamento   *float64 `json:"orcamento"`
	TipoFamilia *string  `json:"tipo_familia"`
	Urgencia    *string  `json:"urgencia"`
	QtdPessoas  *int     `json:"qtd_pessoas"`
}

// LeadFilter narrows a lead listing
type LeadFilter struct {
	Status string
	Search string
}

// LeadService manages leads
type LeadService struct {
	db *gorm.DB
}

// NewLeadService creates a LeadService
func NewLeadService(db *gorm.DB) *LeadService {
	return &LeadService{db: db}
}

// ValidLeadStatus reports whether s is a known lead status
func ValidLeadStatus(s string) bool {
	switch s {
	case models.LeadStatusNew, models.LeadStatusInService, models.LeadStatusQualified,
		models.LeadStatusDiscarded, models.LeadStatusConverted:
		return true
	}
	return false
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func (in *LeadInput) apply(l *models.Lead) error {
	if in.Name != nil {
		l.Name = trimmed(in.Name)
	}
	if in.Email != nil {
		l.Email = strings.ToLower(trimmed(in.Email))
	}
	if in.Phone != nil {
		l.Phone = trimmed(in.Phone)
	}
	if in.Source != nil {
		l.Source = trimmed(in.Source)
	}
	if in.Status != nil {
		l.Status = trimmed(in.Status)
	}
	if in.Notes != nil {
		l.Notes = *in.Notes
	}
	if in.Finalidade != nil {
		l.Finalidade = trimmed(in.Finalidade)
	}
	if in.Orcamento != nil {
		l.Orcamento = *in.Orcamento
	}
	if in.TipoFamilia != nil {
		l.TipoFamilia = trimmed(in.TipoFamilia)
	}
	if in.Urgencia != nil {
		l.Urgencia = trimmed(in.Urgencia)
	}
	if in.QtdPessoas != nil {
		l.QtdPessoas = *in.QtdPessoas
	}
	return validateLead(l)
}

func validateLead(l *models.Lead) error {
	switch {
	case l.Name == "":
		return invalid("name is required")
	case l.Email != "" && !validEmail(l.Email):
		return invalid("email %q is not valid", l.Email)
	case !ValidLeadStatus(l.Status):
		return invalid("unknown status %q", l.Status)
	case l.Finalidade != "" && !oneOf(l.Finalidade, profile.FinalidadeMoradia, profile.FinalidadeInvestimento):
		return invalid("unknown finalidade %q", l.Finalidade)
	case l.TipoFamilia != "" && !oneOf(l.TipoFamilia, profile.FamiliaCasal, profile.FamiliaSolo, profile.FamiliaFamilia):
		return invalid("unknown tipo_familia %q", l.TipoFamilia)
	case l.Urgencia != "" && !oneOf(l.Urgencia, profile.UrgenciaAlta, profile.UrgenciaMedia, profile.UrgenciaBaixa):
		return invalid("unknown urgencia %q", l.Urgencia)
	case l.Orcamento < 0:
		return invalid("orcamento must not be negative")
	case l.QtdPessoas < 0:
		return invalid("qtd_pessoas must not be negative")
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// List returns one page of the owner's leads, newest first
func (s *LeadService) List(ctx context.Context, ownerID string, filter LeadFilter, page Page) ([]models.Lead, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Lead{}).Where("owner_id = ?", ownerID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\' OR phone LIKE ? ESCAPE '\\')", pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var leads []models.Lead
	if err := page.apply(q).Order("created_at DESC, id DESC").Find(&leads).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, total, nil
}

// Get loads one lead with its negotiations
func (s *LeadService) Get(ctx context.Context, ownerID string, id uint) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).
		Preload("Negotiations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Negotiations.Property").
		Where("owner_id = ?", ownerID).
		First(&lead, id).Error
	if err != nil {
		return nil, notFound("lead", err)
	}
	return &lead, nil
}

// ForQualification loads a lead with everything the qualifier reads:
// negotiations, their property and activities.
func (s *LeadService) ForQualification(ctx context.Context, ownerID string, id uint) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).
		Preload("Negotiations").
		Preload("Negotiations.Property").
		Preload("Negotiations.Activities").
		Where("owner_id = ?", ownerID).
		First(&lead, id).Error
	if err != nil {
		return nil, notFound("lead", err)
	}
	return &lead, nil
}

// Create stores a new lead
func (s *LeadService) Create(ctx context.Context, ownerID string, in LeadInput) (*models.Lead, error) {
	lead := &models.Lead{OwnerID: ownerID, Status: models.LeadStatusNew}
	if err := in.apply(lead); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

// Update applies the non-nil fields of in
func (s *LeadService) Update(ctx context.Context, ownerID string, id uint, in LeadInput) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&lead, id).Error; err != nil {
		return nil, notFound("lead", err)
	}
	if err := in.apply(&lead); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&lead).Error; err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return &lead, nil
}

// Delete soft-deletes a lead and its negotiations
func (s *LeadService) Delete(ctx context.Context, ownerID string, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner_id = ?", ownerID).Delete(&models.Lead{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete lead: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("lead %w", ErrNotFound)
		}
		if err := tx.Where("lead_id = ? AND owner_id = ?", id, ownerID).Delete(&models.Negotiation{}).Error; err != nil {
			return fmt.Errorf("failed to delete lead negotiations: %w", err)
		}
		return nil
	})
}

// applyQualification stores a qualifier score. A warm lead still in the
// early statuses moves to qualificado.
func (s *LeadService) applyQualification(ctx context.Context, lead *models.Lead, score int, warm bool) error {
	updates := map[string]interface{}{"score": profile.Clamp(score)}
	if warm && (lead.Status == models.LeadStatusNew || lead.Status == models.LeadStatusInService) {
		updates["status"] = models.LeadStatusQualified
	}
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to store lead score: %w", err)
	}
	lead.Score = updates["score"].(int)
	if status, ok := updates["status"].(string); ok {
		lead.Status = status
	}
	return nil
}
