package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead status values
const (
	LeadStatusNew       = "novo"
	LeadStatusInService = "em_atendimento"
	LeadStatusQualified = "qualificado"
	LeadStatusDiscarded = "descartado"
	LeadStatusConverted = "convertido"
)

// Lead represents a prospective buyer tracked by a broker
type Lead struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// OwnerID is the broker's auth subject
	OwnerID string `json:"owner_id" gorm:"index;not null"`

	Name   string `json:"name" gorm:"not null"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Source string `json:"source"` // site, indicacao, portal, whatsapp, chat
	Status string `json:"status" gorm:"default:'novo';index"`
	Score  int    `json:"score" gorm:"default:0"`
	Notes  string `json:"notes" gorm:"type:text"`

	// Interest gathered manually or from a qualification conversation
	Finalidade  string  `json:"finalidade"` // moradia, investimento
	Orcamento   float64 `json:"orcamento"`
	TipoFamilia string  `json:"tipo_familia"` // casal, solo, familia
	Urgencia    string  `json:"urgencia"`     // alta, media, baixa
	QtdPessoas  int     `json:"qtd_pessoas"`

	Negotiations []Negotiation `json:"negotiations,omitempty" gorm:"foreignKey:LeadID"`
}

// Property kinds
const (
	PropertyKindDevelopment = "empreendimento"
	PropertyKindResale      = "avulso"
)

// Property status values
const (
	PropertyStatusAvailable = "disponivel"
	PropertyStatusReserved  = "reservado"
	PropertyStatusSold      = "vendido"
)

// Property is a new development or a resale unit
type Property struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	OwnerID string `json:"owner_id" gorm:"index;not null"`

	Kind         string   `json:"kind" gorm:"not null;default:'avulso'"`
	Title        string   `json:"title" gorm:"not null"`
	Developer    string   `json:"developer"` // construtora, for developments
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Neighborhood string   `json:"neighborhood"`
	Price        float64  `json:"price"`
	AreaM2       float64  `json:"area_m2"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    int      `json:"bathrooms"`
	ParkingSpots int      `json:"parking_spots"`
	Status       string   `json:"status" gorm:"default:'disponivel';index"`
	Description  string   `json:"description" gorm:"type:text"`
	Photos       []string `json:"photos" gorm:"serializer:json"`
}

// Pipeline stages, in kanban order
const (
	StageNewLead       = "novo_lead"
	StageFirstContact  = "primeiro_contato"
	StageQualification = "qualificacao"
	StageVisit         = "visita_agendada"
	StageProposal      = "proposta_enviada"
	StageNegotiation   = "negociacao"
	StageWon           = "fechado_ganho"
	StageLost          = "fechado_perdido"
)

// StageOrder lists every pipeline stage in board order.
var StageOrder = []string{
	StageNewLead,
	StageFirstContact,
	StageQualification,
	StageVisit,
	StageProposal,
	StageNegotiation,
	StageWon,
	StageLost,
}

// ValidStage reports whether stage is a known pipeline stage
func ValidStage(stage string) bool {
	for _, s := range StageOrder {
		if s == stage {
			return true
		}
	}
	return false
}

// IsClosedStage reports whether the deal is finished, won or lost
func IsClosedStage(stage string) bool {
	return stage == StageWon || stage == StageLost
}

// Negotiation links a lead to an optional property and moves through the pipeline
type Negotiation struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	OwnerID string `json:"owner_id" gorm:"index;not null"`

	LeadID     uint  `json:"lead_id" gorm:"not null;index"`
	PropertyID *uint `json:"property_id" gorm:"index"`

	Stage         string     `json:"stage" gorm:"not null;default:'novo_lead';index"`
	ProposalValue *float64   `json:"proposal_value"`
	NextAction    string     `json:"next_action"`
	NextActionAt  *time.Time `json:"next_action_at"`
	LostReason    string     `json:"lost_reason"`
	ClosedAt      *time.Time `json:"closed_at"`

	Lead       *Lead       `json:"lead,omitempty" gorm:"foreignKey:LeadID"`
	Property   *Property   `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Activities []Activity  `json:"activities,omitempty" gorm:"foreignKey:NegotiationID"`
	AIHistory  []AIHistory `json:"ai_history,omitempty" gorm:"foreignKey:NegotiationID"`
}

// Activity kinds
const (
	ActivityCall     = "ligacao"
	ActivityWhatsApp = "whatsapp"
	ActivityEmail    = "email"
	ActivityVisit    = "visita"
	ActivityMeeting  = "reuniao"
	ActivityNote     = "nota"
)

// ValidActivityKind reports whether kind is a known activity kind
func ValidActivityKind(kind string) bool {
	switch kind {
	case ActivityCall, ActivityWhatsApp, ActivityEmail, ActivityVisit, ActivityMeeting, ActivityNote:
		return true
	}
	return false
}

// Activity is a broker touchpoint logged against a negotiation
type Activity struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`

	NegotiationID uint      `json:"negotiation_id" gorm:"not null;index"`
	Kind          string    `json:"kind" gorm:"not null"`
	Description   string    `json:"description" gorm:"type:text"`
	OccurredAt    time.Time `json:"occurred_at" gorm:"index"`
}

// AI agents that write history records
const (
	AgentCoach          = "coach"
	AgentCopywriter     = "copywriter"
	AgentQualifier      = "qualifier"
	AgentConversational = "conversational"
)

// AIHistory is an immutable record of one assistant exchange
type AIHistory struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	NegotiationID *uint `json:"negotiation_id" gorm:"index"`
	LeadID        *uint `json:"lead_id" gorm:"index"`

	Agent         string  `json:"agent" gorm:"not null;index"`
	Tool          string  `json:"tool"`
	Prompt        string  `json:"prompt" gorm:"type:text"`
	Response      string  `json:"response" gorm:"type:text"`
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
	EstimatedCost float64 `json:"estimated_cost"`
	Fallback      bool    `json:"fallback"` // true when the fixed fallback answer was used
}

// Conversation status values
const (
	ConversationActive    = "ativa"
	ConversationConverted = "convertida"
)

// Conversation is a qualification chat with a prospective lead
type Conversation struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PublicID    string `json:"public_id" gorm:"uniqueIndex;not null"`
	OwnerID     string `json:"owner_id" gorm:"index"` // empty until a broker claims it
	LeadID      *uint  `json:"lead_id" gorm:"index"`
	VisitorName string `json:"visitor_name"`

	Profile  map[string]interface{} `json:"profile" gorm:"serializer:json"`
	Score    int                    `json:"score"`
	Complete bool                   `json:"complete"`
	Status   string                 `json:"status" gorm:"default:'ativa';index"`

	Messages []ConversationMessage `json:"messages,omitempty" gorm:"foreignKey:ConversationID"`
}

// Message roles
const (
	RoleLead      = "lead"
	RoleAssistant = "assistant"
)

// ConversationMessage is one turn in a Conversation
type ConversationMessage struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	ConversationID uint   `json:"conversation_id" gorm:"not null;index"`
	Role           string `json:"role" gorm:"not null"`
	Content        string `json:"content" gorm:"type:text"`
}

// All returns every model for migrations
func All() []interface{} {
	return []interface{}{
		&Lead{},
		&Property{},
		&Negotiation{},
		&Activity{},
		&AIHistory{},
		&Conversation{},
		&ConversationMessage{},
	}
}
