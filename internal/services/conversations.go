package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"imob-crm/internal/assistant"
	"imob-crm/internal/logging"
	"imob-crm/internal/metrics"
	"imob-crm/internal/profile"
	"imob-crm/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxChatMessageLength bounds one inbound chat message, in characters
const MaxChatMessageLength = 2000

// chatHistoryWindow is how many stored turns are loaded for a reply
const chatHistoryWindow = 10

// ChatInput is one message from the public qualification chat
type ChatInput struct {
	ConversationID string `json:"conversation_id"`
	VisitorName    string `json:"visitor_name"`
	BrokerID       string `json:"broker_id"`
	Message        string `json:"message"`
}

// ChatReply is returned to the visitor
type ChatReply struct {
	ConversationID string          `json:"conversation_id"`
	Reply          string          `json:"reply"`
	Profile        profile.Profile `json:"profile"`
	Score          int             `json:"score"`
	Complete       bool            `json:"complete"`
	Fallback       bool            `json:"fallback"`
}

// ConversationFilter narrows a conversation listing
type ConversationFilter struct {
	Status   string
	Complete *bool
}

// ConversationService runs the public qualification chat and lets brokers
// turn finished conversations into leads.
type ConversationService struct {
	db        *gorm.DB
	assistant *assistant.Assistant
	log       *zap.Logger
}

// NewConversationService creates a ConversationService
func NewConversationService(db *gorm.DB, asst *assistant.Assistant) *ConversationService {
	return &ConversationService{db: db, assistant: asst, log: logging.Named("conversations")}
}

// visible scopes a query to the owner's conversations plus the unclaimed ones.
func (s *ConversationService) visible(ctx context.Context, ownerID string) *gorm.DB {
	return s.db.WithContext(ctx).Where("(owner_id = ? OR owner_id = '')", ownerID)
}

// Chat handles one visitor message: it loads or starts the conversation,
// asks the assistant for a reply and stores both turns with the updated
// profile.
func (s *ConversationService) Chat(ctx context.Context, in ChatInput) (*ChatReply, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, invalid("message is required")
	}
	if utf8.RuneCountInString(message) > MaxChatMessageLength {
		return nil, invalid("message is longer than %d characters", MaxChatMessageLength)
	}

	conv, history, err := s.open(ctx, in)
	if err != nil {
		return nil, err
	}

	turn := s.assistant.Converse(ctx, assistant.ConverseInput{
		Profile:     profile.Profile(conv.Profile),
		History:     history,
		Message:     message,
		VisitorName: conv.VisitorName,
	})

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv.Profile = map[string]interface{}(turn.Profile)
		conv.Score = turn.Score
		conv.Complete = turn.Complete
		if conv.ID == 0 {
			if err := tx.Create(conv).Error; err != nil {
				return fmt.Errorf("failed to create conversation: %w", err)
			}
		} else {
			err := tx.Model(conv).Select("profile", "score", "complete", "visitor_name", "updated_at").Updates(conv).Error
			if err != nil {
				return fmt.Errorf("failed to update conversation: %w", err)
			}
		}

		msgs := []models.ConversationMessage{
			{ConversationID: conv.ID, Role: models.RoleLead, Content: message},
			{ConversationID: conv.ID, Role: models.RoleAssistant, Content: turn.Reply},
		}
		if err := tx.Create(&msgs).Error; err != nil {
			return fmt.Errorf("failed to store chat turn: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Get().RecordChatTurn(turn.Complete)
	recordHistory(ctx, s.db, s.log,
		historyFor(turn.Result, models.AgentConversational, ToolQualifierChat+":"+conv.PublicID, nil, conv.LeadID))

	return &ChatReply{
		ConversationID: conv.PublicID,
		Reply:          turn.Reply,
		Profile:        turn.Profile,
		Score:          turn.Score,
		Complete:       turn.Complete,
		Fallback:       turn.Fallback(),
	}, nil
}

// open finds the conversation named by in.ConversationID, or prepares a new
// unsaved one, and loads its newest turns in chronological order.
func (s *ConversationService) open(ctx context.Context, in ChatInput) (*models.Conversation, []models.ConversationMessage, error) {
	name := strings.TrimSpace(in.VisitorName)

	if in.ConversationID == "" {
		return &models.Conversation{
			PublicID:    uuid.NewString(),
			OwnerID:     strings.TrimSpace(in.BrokerID),
			VisitorName: name,
			Profile:     map[string]interface{}{},
			Status:      models.ConversationActive,
		}, nil, nil
	}

	if _, err := uuid.Parse(in.ConversationID); err != nil {
		return nil, nil, invalid("conversation_id is not a valid id")
	}

	var conv models.Conversation
	if err := s.db.WithContext(ctx).Where("public_id = ?", in.ConversationID).First(&conv).Error; err != nil {
		return nil, nil, notFound("conversation", err)
	}
	if conv.Profile == nil {
		conv.Profile = map[string]interface{}{}
	}
	if name != "" && conv.VisitorName == "" {
		conv.VisitorName = name
	}

	var history []models.ConversationMessage
	err := s.db.WithContext(ctx).Where("conversation_id = ?", conv.ID).
		Order("created_at DESC, id DESC").Limit(chatHistoryWindow).Find(&history).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return &conv, history, nil
}

// List returns one page of conversations visible to the owner
func (s *ConversationService) List(ctx context.Context, ownerID string, filter ConversationFilter, page Page) ([]models.Conversation, int64, error) {
	q := s.visible(ctx, ownerID).Model(&models.Conversation{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Complete != nil {
		q = q.Where("complete = ?", *filter.Complete)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	var convs []models.Conversation
	if err := page.apply(q).Order("updated_at DESC, id DESC").Find(&convs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, total, nil
}

// Get loads a conversation with all its messages
func (s *ConversationService) Get(ctx context.Context, ownerID string, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.visible(ctx, ownerID).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&conv, id).Error
	if err != nil {
		return nil, notFound("conversation", err)
	}
	return &conv, nil
}

// Promote creates a lead from a conversation's profile, claims the
// conversation for the owner and marks it convertida.
func (s *ConversationService) Promote(ctx context.Context, ownerID string, id uint) (*models.Lead, error) {
	var lead *models.Lead
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		err := tx.Where("(owner_id = ? OR owner_id = '')", ownerID).First(&conv, id).Error
		if err != nil {
			return notFound("conversation", err)
		}
		if conv.Status == models.ConversationConverted || conv.LeadID != nil {
			return fmt.Errorf("%w: conversation already promoted", ErrConflict)
		}

		lead = leadFromProfile(ownerID, &conv)
		if err := tx.Create(lead).Error; err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}

		// Claim only while still unpromoted. A concurrent promote that got
		// here first leaves zero rows to update and this lead is rolled back.
		res := tx.Model(&models.Conversation{}).
			Where("id = ? AND lead_id IS NULL AND status <> ?", conv.ID, models.ConversationConverted).
			Updates(map[string]interface{}{
				"owner_id": ownerID,
				"lead_id":  lead.ID,
				"status":   models.ConversationConverted,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update conversation: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: conversation already promoted", ErrConflict)
		}

		// chat exchanges recorded before the lead existed now point at it
		return tx.Model(&models.AIHistory{}).
			Where("tool = ? AND lead_id IS NULL", ToolQualifierChat+":"+conv.PublicID).
			Update("lead_id", lead.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("conversation promoted to lead",
		zap.Uint("conversation_id", id),
		zap.Uint("lead_id", lead.ID),
		zap.String("owner_id", ownerID),
	)
	return lead, nil
}

func leadFromProfile(ownerID string, conv *models.Conversation) *models.Lead {
	p := profile.Profile(conv.Profile)

	name := strings.TrimSpace(conv.VisitorName)
	if name == "" {
		name = "Visitante do chat"
	}

	lead := &models.Lead{
		OwnerID:     ownerID,
		Name:        name,
		Email:       p.String(profile.FieldEmail),
		Phone:       p.String(profile.FieldTelefone),
		Source:      "chat",
		Status:      models.LeadStatusNew,
		Score:       conv.Score,
		Finalidade:  p.String(profile.FieldFinalidade),
		TipoFamilia: p.String(profile.FieldTipoFamilia),
		Urgencia:    p.String(profile.FieldUrgencia),
	}
	if conv.Complete {
		lead.Status = models.LeadStatusQualified
	}
	if v, ok := p.Int(profile.FieldOrcamento); ok {
		lead.Orcamento = float64(v)
	}
	if v, ok := p.Int(profile.FieldQtdPessoas); ok {
		lead.QtdPessoas = int(v)
	}
	return lead
}
