package services

import (
	"context"
	"fmt"
	"strings"

	"imob-crm/internal/ai"
	"imob-crm/internal/assistant"
	"imob-crm/internal/logging"
	"imob-crm/internal/spend"
	"imob-crm/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tool names stored on AI history rows
const (
	ToolCoachChat     = "coach_chat"
	ToolDraftMessage  = "draft_message"
	ToolQualifyLead   = "qualify_lead"
	ToolQualifierChat = "qualifier_chat"
)

// StatusReporter reports provider availability and spend
type StatusReporter interface {
	Status(ctx context.Context) (*ai.Status, error)
}

// SpendReporter reads the persisted spend audit trail
type SpendReporter interface {
	GetSummary(ctx context.Context) (*spend.SpendSummary, error)
	GetBreakdown(ctx context.Context, groupBy string) ([]spend.SpendBreakdownItem, error)
}

// Answer is what an AI feature returns to the broker
type Answer struct {
	Content       string  `json:"content"`
	Provider      string  `json:"provider,omitempty"`
	Model         string  `json:"model,omitempty"`
	EstimatedCost float64 `json:"estimated_cost"`
	Fallback      bool    `json:"fallback"`
	HistoryID     uint    `json:"history_id,omitempty"`
}

// QualifyAnswer is the structured lead assessment plus its provenance
type QualifyAnswer struct {
	assistant.Qualification
	Provider      string  `json:"provider,omitempty"`
	Model         string  `json:"model,omitempty"`
	EstimatedCost float64 `json:"estimated_cost"`
	Fallback      bool    `json:"fallback"`
	LeadScore     int     `json:"lead_score"`
	LeadStatus    string  `json:"lead_status"`
}

// SpendReport is the persisted spend view
type SpendReport struct {
	Summary *spend.SpendSummary        `json:"summary"`
	ByModel []spend.SpendBreakdownItem `json:"by_model"`
	ByAgent []spend.SpendBreakdownItem `json:"by_agent"`
}

// AIService runs the assistant features against CRM records and keeps the
// AI history. Provider failures never surface as errors here; only
// missing records and invalid input do.
type AIService struct {
	db           *gorm.DB
	assistant    *assistant.Assistant
	leads        *LeadService
	negotiations *NegotiationService
	status       StatusReporter
	spend        SpendReporter
	log          *zap.Logger
}

// NewAIService creates an AIService
func NewAIService(db *gorm.DB, asst *assistant.Assistant, leads *LeadService, negotiations *NegotiationService, status StatusReporter, spendReporter SpendReporter) *AIService {
	return &AIService{
		db:           db,
		assistant:    asst,
		leads:        leads,
		negotiations: negotiations,
		status:       status,
		spend:        spendReporter,
		log:          logging.Named("ai-service"),
	}
}

// Coach answers a broker question about a negotiation
func (s *AIService) Coach(ctx context.Context, ownerID string, negotiationID uint, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, invalid("question is required")
	}
	neg, err := s.negotiations.Get(ctx, ownerID, negotiationID)
	if err != nil {
		return nil, err
	}

	res := s.assistant.Coach(ctx, neg, question)
	h := s.record(ctx, historyFor(res, models.AgentCoach, ToolCoachChat, &neg.ID, &neg.LeadID))
	return answerOf(res, h), nil
}

// DraftMessage writes a message for a negotiation
func (s *AIService) DraftMessage(ctx context.Context, ownerID string, negotiationID uint, req assistant.MessageRequest) (*Answer, error) {
	if !assistant.ValidMessageType(req.Type) {
		return nil, invalid("unknown message type %q", req.Type)
	}
	neg, err := s.negotiations.Get(ctx, ownerID, negotiationID)
	if err != nil {
		return nil, err
	}

	res, err := s.assistant.DraftMessage(ctx, neg, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	h := s.record(ctx, historyFor(res, models.AgentCopywriter, ToolDraftMessage+":"+req.Type, &neg.ID, &neg.LeadID))
	return answerOf(res, h), nil
}

// QualifyLead scores a lead. A real assessment updates the lead's score
// (and moves a warm lead to qualificado); the fallback leaves the lead
// untouched.
func (s *AIService) QualifyLead(ctx context.Context, ownerID string, leadID uint) (*QualifyAnswer, error) {
	lead, err := s.leads.ForQualification(ctx, ownerID, leadID)
	if err != nil {
		return nil, err
	}

	res := s.assistant.Qualify(ctx, lead)
	out := &QualifyAnswer{
		Qualification: res.Qualification,
		Fallback:      res.Fallback(),
		LeadScore:     lead.Score,
		LeadStatus:    lead.Status,
	}
	if res.Response != nil {
		out.Provider = string(res.Response.Provider)
		out.Model = res.Response.Model
		out.EstimatedCost = res.Response.EstimatedCost
	}

	if !res.Fallback() {
		warm := res.Qualification.Nivel == assistant.NivelQuente || res.Qualification.Nivel == assistant.NivelMuitoQuente
		if err := s.leads.applyQualification(ctx, lead, res.Qualification.Score, warm); err != nil {
			return nil, err
		}
		out.LeadScore = lead.Score
		out.LeadStatus = lead.Status
	}

	s.record(ctx, historyFor(res.Result, models.AgentQualifier, ToolQualifyLead, nil, &lead.ID))
	return out, nil
}

// Status reports provider availability and the spend counter
func (s *AIService) Status(ctx context.Context) (*ai.Status, error) {
	return s.status.Status(ctx)
}

// Spend reports the persisted spend of the current day and month
func (s *AIService) Spend(ctx context.Context) (*SpendReport, error) {
	summary, err := s.spend.GetSummary(ctx)
	if err != nil {
		return nil, err
	}
	byModel, err := s.spend.GetBreakdown(ctx, "model")
	if err != nil {
		return nil, err
	}
	byAgent, err := s.spend.GetBreakdown(ctx, "agent")
	if err != nil {
		return nil, err
	}
	return &SpendReport{Summary: summary, ByModel: byModel, ByAgent: byAgent}, nil
}

func historyFor(res *assistant.Result, agent, tool string, negotiationID, leadID *uint) *models.AIHistory {
	h := &models.AIHistory{
		NegotiationID: negotiationID,
		LeadID:        leadID,
		Agent:         agent,
		Tool:          tool,
		Prompt:        res.Prompt(),
		Response:      res.Content,
		Fallback:      res.Fallback(),
	}
	if res.Response != nil {
		h.Provider = string(res.Response.Provider)
		h.Model = res.Response.Model
		h.EstimatedCost = res.Response.EstimatedCost
	}
	return h
}

// record writes a history row. A failure is logged and never returned:
// the exchange already happened and the broker still gets the answer.
func (s *AIService) record(ctx context.Context, h *models.AIHistory) *models.AIHistory {
	return recordHistory(ctx, s.db, s.log, h)
}

func recordHistory(ctx context.Context, db *gorm.DB, log *zap.Logger, h *models.AIHistory) *models.AIHistory {
	if err := db.WithContext(ctx).Create(h).Error; err != nil {
		log.Error("failed to record ai history",
			zap.String("agent", h.Agent),
			zap.String("tool", h.Tool),
			zap.Error(err),
		)
		return nil
	}
	return h
}

func answerOf(res *assistant.Result, h *models.AIHistory) *Answer {
	a := &Answer{Content: res.Content, Fallback: res.Fallback()}
	if res.Response != nil {
		a.Provider = string(res.Response.Provider)
		a.Model = res.Response.Model
		a.EstimatedCost = res.Response.EstimatedCost
	}
	if h != nil {
		a.HistoryID = h.ID
	}
	return a
}
