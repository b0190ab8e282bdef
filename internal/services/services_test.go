package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"imob-crm/internal/ai"
	"imob-crm/internal/assistant"
	"imob-crm/internal/db"
	"imob-crm/internal/profile"
	"imob-crm/internal/spend"
	"imob-crm/internal/storage"
	"imob-crm/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	owner = "broker-a"
	other = "broker-b"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := db.OpenSQLite(":memory:", "test")
	require.NoError(t, err)
	require.NoError(t, d.Migrate())
	t.Cleanup(func() { _ = d.Close() })
	return d.DB
}

type fakeGen struct {
	mu      sync.Mutex
	content string
	err     error
	calls   int
}

func (f *fakeGen) Chat(ctx context.Context, _, _ string, opts ai.Options) (*ai.Response, error) {
	return f.answer()
}

func (f *fakeGen) Generate(ctx context.Context, _ string, opts ai.Options) (*ai.Response, error) {
	return f.answer()
}

func (f *fakeGen) answer() (*ai.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Response{Content: f.content, Provider: ai.ProviderOpenAI, Model: "gpt-4o-mini", EstimatedCost: 0.0004}, nil
}

type fakeStatus struct{}

func (fakeStatus) Status(context.Context) (*ai.Status, error) {
	return &ai.Status{FreeProviderAvailable: true, Ceiling: 5, WithinLimit: true}, nil
}

type memStore struct {
	uploaded map[string]string
	fail     bool
}

func (m *memStore) Upload(_ context.Context, key, _ string, data io.Reader) (string, error) {
	if m.fail {
		return "", errors.New("s3 down")
	}
	b, _ := io.ReadAll(data)
	m.uploaded[key] = string(b)
	return m.URL(key), nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.uploaded, key)
	return nil
}

func (m *memStore) URL(key string) string { return "https://cdn.test/" + key }

type fixture struct {
	db            *gorm.DB
	gen           *fakeGen
	leads         *LeadService
	properties    *PropertyService
	negotiations  *NegotiationService
	ai            *AIService
	conversations *ConversationService
	store         *memStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := setupTestDB(t)
	gen := &fakeGen{content: "resposta"}
	asst := assistant.New(gen)
	store := &memStore{uploaded: map[string]string{}}

	f := &fixture{db: gdb, gen: gen, store: store}
	f.leads = NewLeadService(gdb)
	f.properties = NewPropertyService(gdb, store)
	f.negotiations = NewNegotiationService(gdb)
	f.ai = NewAIService(gdb, asst, f.leads, f.negotiations, fakeStatus{}, spend.NewSpendTracker(gdb))
	f.conversations = NewConversationService(gdb, asst)
	return f
}

func str(s string) *string { return &s }

func (f *fixture) lead(t *testing.T, ownerID, name string) *models.Lead {
	t.Helper()
	l, err := f.leads.Create(context.Background(), ownerID, LeadInput{Name: str(name)})
	require.NoError(t, err)
	return l
}

func (f *fixture) property(t *testing.T, ownerID string, price float64) *models.Property {
	t.Helper()
	p, err := f.properties.Create(context.Background(), ownerID, PropertyInput{
		Title: str("Apartamento 2 quartos"),
		Kind:  str(models.PropertyKindResale),
		Price: &price,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) negotiation(t *testing.T, leadID uint, propertyID *uint) *models.Negotiation {
	t.Helper()
	n, err := f.negotiations.Create(context.Background(), owner, NegotiationInput{LeadID: leadID, PropertyID: propertyID})
	require.NoError(t, err)
	return n
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: DefaultPageSize}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 3, Limit: MaxPageSize}, Page{Page: 3, Limit: 1000}.Normalize())
}

func TestLeads_CRUDAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead, err := f.leads.Create(ctx, owner, LeadInput{
		Name:       str("  Paula Reis "),
		Email:      str("Paula@Exemplo.com"),
		Finalidade: str(profile.FinalidadeMoradia),
	})
	require.NoError(t, err)
	assert.Equal(t, "Paula Reis", lead.Name)
	assert.Equal(t, "paula@exemplo.com", lead.Email)
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	_, err = f.leads.Get(ctx, other, lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := f.leads.Update(ctx, owner, lead.ID, LeadInput{Status: str(models.LeadStatusInService)})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusInService, updated.Status)
	assert.Equal(t, "Paula Reis", updated.Name)

	f.lead(t, owner, "Bruno Costa")
	f.lead(t, other, "Outro corretor")

	list, total, err := f.leads.List(ctx, owner, LeadFilter{}, Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 1)

	found, total, err := f.leads.List(ctx, owner, LeadFilter{Search: "paula"}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, lead.ID, found[0].ID)

	require.NoError(t, f.leads.Delete(ctx, owner, lead.ID))
	assert.ErrorIs(t, f.leads.Delete(ctx, owner, lead.ID), ErrNotFound)
}

func TestLeads_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]LeadInput{
		"missing name": {},
		"bad email":    {Name: str("Ana"), Email: str("ana@")},
		"bad status":   {Name: str("Ana"), Status: str("vip")},
		"bad urgency":  {Name: str("Ana"), Urgencia: str("ontem")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.leads.Create(ctx, owner, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestProperties_CRUDAndPhotos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.properties.Create(ctx, owner, PropertyInput{Title: str("x"), Kind: str("casa")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	prop := f.property(t, owner, 450000)
	assert.Equal(t, models.PropertyStatusAvailable, prop.Status)

	withPhoto, err := f.properties.AddPhoto(ctx, owner, prop.ID, "sala.jpg", "image/jpeg", strings.NewReader("img"))
	require.NoError(t, err)
	require.Len(t, withPhoto.Photos, 1)
	assert.True(t, strings.HasPrefix(withPhoto.Photos[0], "https://cdn.test/properties/"))

	reloaded, err := f.properties.Get(ctx, owner, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, withPhoto.Photos, reloaded.Photos)

	_, err = f.properties.AddPhoto(ctx, other, prop.ID, "sala.jpg", "image/jpeg", strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrNotFound)

	f.store.fail = true
	_, err = f.properties.AddPhoto(ctx, owner, prop.ID, "sala.jpg", "image/jpeg", strings.NewReader("img"))
	assert.Error(t, err)

	disabled := NewPropertyService(f.db, nil)
	assert.False(t, disabled.StorageEnabled())
	_, err = disabled.AddPhoto(ctx, owner, prop.ID, "a.jpg", "", strings.NewReader(""))
	assert.ErrorIs(t, err, storage.ErrDisabled)

	sold := models.PropertyStatusSold
	updated, err := f.properties.Update(ctx, owner, prop.ID, PropertyInput{Status: &sold})
	require.NoError(t, err)
	assert.Equal(t, sold, updated.Status)

	list, total, err := f.properties.List(ctx, owner, PropertyFilter{Status: sold}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	require.NoError(t, f.properties.Delete(ctx, owner, prop.ID))
}

func TestNegotiations_CreateValidatesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreignLead := f.lead(t, other, "Lead alheio")
	_, err := f.negotiations.Create(ctx, owner, NegotiationInput{LeadID: foreignLead.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	lead := f.lead(t, owner, "Lead próprio")
	foreignProp := f.property(t, other, 100)
	_, err = f.negotiations.Create(ctx, owner, NegotiationInput{LeadID: lead.ID, PropertyID: &foreignProp.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.negotiations.Create(ctx, owner, NegotiationInput{LeadID: lead.ID, Stage: "ganhou"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	neg := f.negotiation(t, lead.ID, nil)
	assert.Equal(t, models.StageNewLead, neg.Stage)
	require.NotNil(t, neg.Lead)
	assert.Equal(t, "Lead próprio", neg.Lead.Name)
}

func TestNegotiations_MoveStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead(t, owner, "Carla")
	neg := f.negotiation(t, lead.ID, nil)

	_, err := f.negotiations.MoveStage(ctx, owner, neg.ID, "inexistente", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	moved, err := f.negotiations.MoveStage(ctx, owner, neg.ID, models.StageLost, "comprou com outro corretor")
	require.NoError(t, err)
	assert.NotNil(t, moved.ClosedAt)
	assert.Equal(t, "comprou com outro corretor", moved.LostReason)

	reopened, err := f.negotiations.MoveStage(ctx, owner, neg.ID, models.StageNegotiation, "")
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt)
	assert.Empty(t, reopened.LostReason)

	won, err := f.negotiations.MoveStage(ctx, owner, neg.ID, models.StageWon, "")
	require.NoError(t, err)
	assert.NotNil(t, won.ClosedAt)

	reloaded, err := f.leads.Get(ctx, owner, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusConverted, reloaded.Status)

	_, err = f.negotiations.MoveStage(ctx, other, neg.ID, models.StageLost, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNegotiations_PipelineAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead(t, owner, "Diego")
	prop := f.property(t, owner, 300000)

	a := f.negotiation(t, lead.ID, &prop.ID)
	b := f.negotiation(t, lead.ID, nil)
	value := 280000.0
	_, err := f.negotiations.Update(ctx, owner, b.ID, NegotiationUpdate{ProposalValue: &value})
	require.NoError(t, err)
	_, err = f.negotiations.MoveStage(ctx, owner, b.ID, models.StageProposal, "")
	require.NoError(t, err)

	columns, err := f.negotiations.Pipeline(ctx, owner)
	require.NoError(t, err)
	require.Len(t, columns, len(models.StageOrder))
	assert.Equal(t, models.StageNewLead, columns[0].Stage)
	assert.Equal(t, 1, columns[0].Count)
	assert.Equal(t, a.ID, columns[0].Negotiations[0].ID)
	assert.Equal(t, 300000.0, columns[0].TotalValue)
	assert.Equal(t, 280000.0, columns[4].TotalValue)
	assert.NotNil(t, columns[7].Negotiations)

	list, total, err := f.negotiations.List(ctx, owner, models.StageProposal, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, b.ID, list[0].ID)

	_, _, err = f.negotiations.List(ctx, owner, "xyz", Page{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, f.negotiations.Delete(ctx, owner, a.ID))
	_, err = f.negotiations.Get(ctx, owner, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNegotiations_Activities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	neg := f.negotiation(t, f.lead(t, owner, "Elisa").ID, nil)

	_, err := f.negotiations.AddActivity(ctx, owner, neg.ID, ActivityInput{Kind: "telepatia"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	for _, d := range []string{"ligou", "mandou whatsapp"} {
		_, err := f.negotiations.AddActivity(ctx, owner, neg.ID, ActivityInput{Kind: models.ActivityCall, Description: d})
		require.NoError(t, err)
	}

	acts, err := f.negotiations.Activities(ctx, owner, neg.ID)
	require.NoError(t, err)
	assert.Len(t, acts, 2)

	_, err = f.negotiations.Activities(ctx, other, neg.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAI_CoachRecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	neg := f.negotiation(t, f.lead(t, owner, "Fábio").ID, nil)
	f.gen.content = "Ligue amanhã cedo."

	ans, err := f.ai.Coach(ctx, owner, neg.ID, "Qual o próximo passo?")
	require.NoError(t, err)
	assert.Equal(t, "Ligue amanhã cedo.", ans.Content)
	assert.False(t, ans.Fallback)
	assert.NotZero(t, ans.HistoryID)

	hist, err := f.negotiations.AIHistory(ctx, owner, neg.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.AgentCoach, hist[0].Agent)
	assert.Equal(t, ToolCoachChat, hist[0].Tool)
	assert.Contains(t, hist[0].Prompt, "Qual o próximo passo?")
	assert.Equal(t, "gpt-4o-mini", hist[0].Model)
	require.NotNil(t, hist[0].LeadID)

	_, err = f.ai.Coach(ctx, owner, neg.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.ai.Coach(ctx, other, neg.ID, "oi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAI_FallbacksAreNotErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead(t, owner, "Gabi")
	neg := f.negotiation(t, lead.ID, nil)
	f.gen.err = ai.ErrBudgetExceeded

	coach, err := f.ai.Coach(ctx, owner, neg.ID, "e agora?")
	require.NoError(t, err)
	assert.Equal(t, assistant.CoachFallback, coach.Content)
	assert.True(t, coach.Fallback)

	msg, err := f.ai.DraftMessage(ctx, owner, neg.ID, assistant.MessageRequest{Type: assistant.MessageFollowUp})
	require.NoError(t, err)
	assert.Equal(t, assistant.MessageFallback, msg.Content)

	q, err := f.ai.QualifyLead(ctx, owner, lead.ID)
	require.NoError(t, err)
	assert.True(t, q.Fallback)
	assert.Equal(t, 0, q.Score)
	assert.Equal(t, assistant.NivelFrio, q.Nivel)

	hist, err := f.negotiations.AIHistory(ctx, owner, neg.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
	for _, h := range hist {
		assert.True(t, h.Fallback)
	}
}

func TestAI_DraftMessageUnknownType(t *testing.T) {
	f := newFixture(t)
	neg := f.negotiation(t, f.lead(t, owner, "Hugo").ID, nil)

	_, err := f.ai.DraftMessage(context.Background(), owner, neg.ID, assistant.MessageRequest{Type: "telegrama"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.gen.calls)
}

func TestAI_QualifyUpdatesLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.lead(t, owner, "Iara")
	f.gen.content = `{"score": 82, "nivel": "muito_quente", "analise": "pronta para comprar", "recomendacoes": ["agendar visita"], "sinaisPositivos": [], "sinaisNegativos": []}`

	q, err := f.ai.QualifyLead(ctx, owner, lead.ID)
	require.NoError(t, err)
	assert.False(t, q.Fallback)
	assert.Equal(t, 82, q.LeadScore)
	assert.Equal(t, models.LeadStatusQualified, q.LeadStatus)

	stored, err := f.leads.Get(ctx, owner, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 82, stored.Score)
	assert.Equal(t, models.LeadStatusQualified, stored.Status)

	var hist []models.AIHistory
	require.NoError(t, f.db.Where("lead_id = ? AND agent = ?", lead.ID, models.AgentQualifier).Find(&hist).Error)
	assert.Len(t, hist, 1)
	assert.Nil(t, hist[0].NegotiationID)
}

func TestAI_HistoryFailureDoesNotFailTheCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	neg := f.negotiation(t, f.lead(t, owner, "João").ID, nil)
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_history", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "ai_histories" {
			_ = tx.AddError(errors.New("history table unavailable"))
		}
	})
	require.NoError(t, err)

	ans, err := f.ai.Coach(ctx, owner, neg.ID, "ajuda?")
	require.NoError(t, err)
	assert.Equal(t, "resposta", ans.Content)
	assert.Zero(t, ans.HistoryID)
}

func TestAI_StatusAndSpend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.ai.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.WithinLimit)

	tracker := spend.NewSpendTracker(f.db)
	_, err = tracker.RecordSpend(ctx, spend.RecordSpendInput{Provider: "openai", Model: "gpt-4o-mini", Agent: "coach", EstimatedCost: 0.002})
	require.NoError(t, err)

	report, err := f.ai.Spend(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.002, report.Summary.MonthlySpend, 1e-9)
	require.Len(t, report.ByAgent, 1)
	assert.Equal(t, "coach", report.ByAgent[0].Key)
}

func TestConversations_ChatFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.content = "Que legal! Quantas pessoas vão morar com você?"

	first, err := f.conversations.Chat(ctx, ChatInput{VisitorName: "Lúcia", Message: "Quero comprar para morar, uns 600 mil"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ConversationID)
	assert.False(t, first.Complete)
	assert.Equal(t, profile.FinalidadeMoradia, first.Profile[profile.FieldFinalidade])

	f.gen.err = errors.New("providers down")
	second, err := f.conversations.Chat(ctx, ChatInput{ConversationID: first.ConversationID, Message: "somos 4 pessoas e tenho pressa"})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, assistant.ConverseFallback, second.Reply)
	assert.True(t, second.Fallback)
	assert.True(t, second.Complete)
	orc, ok := second.Profile.Int(profile.FieldOrcamento)
	require.True(t, ok)
	assert.EqualValues(t, 600000, orc)

	list, total, err := f.conversations.List(ctx, owner, ConversationFilter{}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	conv, err := f.conversations.Get(ctx, owner, list[0].ID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, models.RoleLead, conv.Messages[0].Role)
	assert.Equal(t, models.RoleAssistant, conv.Messages[3].Role)
	assert.True(t, conv.Complete)
	assert.Equal(t, second.Score, conv.Score)

	_, err = f.conversations.Chat(ctx, ChatInput{Message: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.conversations.Chat(ctx, ChatInput{ConversationID: "nope", Message: "oi"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.conversations.Chat(ctx, ChatInput{ConversationID: "6f1c1f44-9a49-4c1e-9d7e-3f0f5b6f0d11", Message: "oi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversations_Promote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.conversations.Chat(ctx, ChatInput{
		VisitorName: "Marcos",
		Message:     "Quero investir, tenho 1 milhão, meu email é marcos@exemplo.com",
	})
	require.NoError(t, err)

	var conv models.Conversation
	require.NoError(t, f.db.Where("public_id = ?", reply.ConversationID).First(&conv).Error)

	lead, err := f.conversations.Promote(ctx, owner, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marcos", lead.Name)
	assert.Equal(t, "marcos@exemplo.com", lead.Email)
	assert.Equal(t, profile.FinalidadeInvestimento, lead.Finalidade)
	assert.Equal(t, 1000000.0, lead.Orcamento)
	assert.Equal(t, "chat", lead.Source)
	assert.Equal(t, reply.Score, lead.Score)

	var hist models.AIHistory
	require.NoError(t, f.db.Where("agent = ?", models.AgentConversational).First(&hist).Error)
	require.NotNil(t, hist.LeadID)
	assert.Equal(t, lead.ID, *hist.LeadID)

	_, err = f.conversations.Promote(ctx, owner, conv.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// claimed conversations disappear for other brokers
	_, err = f.conversations.Get(ctx, other, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversations_PromoteLosesRaceToConcurrentClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.conversations.Chat(ctx, ChatInput{Message: "tenho 500 mil"})
	require.NoError(t, err)
	var conv models.Conversation
	require.NoError(t, f.db.Where("public_id = ?", reply.ConversationID).First(&conv).Error)

	// Another broker claims the conversation after this promote has read it
	// but before it writes the claim.
	err = f.db.Callback().Create().After("gorm:create").Register("test:concurrent_claim", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "leads" {
			return
		}
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE conversations SET owner_id = ?, status = ? WHERE id = ?", other, models.ConversationConverted, conv.ID).Error
		if err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)

	_, err = f.conversations.Promote(ctx, owner, conv.ID)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, f.db.Callback().Create().Remove("test:concurrent_claim"))

	// the losing promote created nothing
	var leads int64
	require.NoError(t, f.db.Model(&models.Lead{}).Where("owner_id = ?", owner).Count(&leads).Error)
	assert.Zero(t, leads)
}

func TestConversations_BrokerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.conversations.Chat(ctx, ChatInput{BrokerID: other, Message: "oi"})
	require.NoError(t, err)

	_, total, err := f.conversations.List(ctx, owner, ConversationFilter{}, Page{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = f.conversations.List(ctx, other, ConversationFilter{}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
