package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"imob-crm/internal/ai"
	"imob-crm/pkg/models"
)

// CoachFallback is returned when no provider could answer.
const CoachFallback = "Desculpe, não consegui analisar essa negociação agora. Tente novamente em alguns instantes."

const coachSystemPrompt = `Você é um coach de vendas sênior especializado no mercado imobiliário brasileiro.
Você acompanha corretores em negociações de imóveis novos (empreendimentos) e usados (avulsos).

Como responder:
- Seja direto e prático, em português do Brasil.
- Baseie-se nos dados da negociação; não invente informações sobre o lead ou o imóvel.
- Sugira próximos passos concretos, com frases que o corretor possa usar.
- Considere a etapa atual do funil ao recomendar a abordagem.
- Responda em no máximo 3 parágrafos curtos ou uma lista de até 5 itens.`

// StageNotes is the strategic note attached to each pipeline stage.
var StageNotes = map[string]string{
	models.StageNewLead:       "Lead recém-chegado: priorize um primeiro contato rápido, de preferência em até 5 minutos.",
	models.StageFirstContact:  "Construa rapport e descubra a motivação da compra antes de apresentar imóveis.",
	models.StageQualification: "Confirme orçamento, forma de pagamento, prazo e quem decide a compra.",
	models.StageVisit:         "Prepare a visita: reforce os pontos que conectam o imóvel às necessidades do lead e confirme o horário na véspera.",
	models.StageProposal:      "Acompanhe a proposta de perto, antecipe objeções e combine um prazo de resposta.",
	models.StageNegotiation:   "Negocie com base em valor, não só preço. Defina limites de desconto e condições antes de ceder.",
	models.StageWon:           "Venda fechada: cuide da documentação, peça indicações e planeje o pós-venda.",
	models.StageLost:          "Negociação perdida: registre o motivo e mantenha o relacionamento para oportunidades futuras.",
}

const (
	coachActivityLimit = 3
	coachHistoryLimit  = 3
)

// Coach answers a broker's question about one negotiation. The negotiation
// should carry Lead, Property, Activities and AIHistory preloaded.
func (a *Assistant) Coach(ctx context.Context, neg *models.Negotiation, question string) *Result {
	user := buildCoachPrompt(neg, question)
	return a.chat(ctx, models.AgentCoach, coachSystemPrompt, user, CoachFallback, ai.Options{
		Temperature: ai.Temperature(0.7),
		MaxTokens:   600,
	})
}

func buildCoachPrompt(neg *models.Negotiation, question string) string {
	var b strings.Builder

	b.WriteString("## Negociação\n")
	fmt.Fprintf(&b, "Lead: %s\n", leadSummary(neg.Lead))
	fmt.Fprintf(&b, "Imóvel: %s\n", propertySummary(neg.Property))
	fmt.Fprintf(&b, "Etapa atual: %s\n", stageLabel(neg.Stage))
	if note, ok := StageNotes[neg.Stage]; ok {
		fmt.Fprintf(&b, "Nota estratégica da etapa: %s\n", note)
	}
	if neg.ProposalValue != nil {
		fmt.Fprintf(&b, "Valor da proposta: %s\n", formatBRL(*neg.ProposalValue))
	}
	if neg.NextActionAt != nil {
		action := "Próxima ação"
		if neg.NextAction != "" {
			action += " (" + neg.NextAction + ")"
		}
		fmt.Fprintf(&b, "%s: %s\n", action, formatDate(*neg.NextActionAt))
	}

	if acts := recentActivities(neg.Activities, coachActivityLimit); len(acts) > 0 {
		b.WriteString("\n## Últimas atividades\n")
		for _, act := range acts {
			fmt.Fprintf(&b, "- %s [%s]: %s\n", formatDate(act.OccurredAt), act.Kind, orDash(act.Description))
		}
	}

	if hist := recentExchanges(neg.AIHistory, models.AgentCoach, coachHistoryLimit); len(hist) > 0 {
		b.WriteString("\n## Conversa anterior com o coach\n")
		for _, h := range hist {
			fmt.Fprintf(&b, "Corretor: %s\nCoach: %s\n", h.Prompt, h.Response)
		}
	}

	b.WriteString("\n## Pergunta do corretor\n")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

// recentActivities returns the newest n activities, newest first.
func recentActivities(acts []models.Activity, n int) []models.Activity {
	sorted := append([]models.Activity(nil), acts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// recentExchanges picks the newest n exchanges of agent and returns them in
// chronological order. The stored prompt of a coach exchange is the whole
// assembled prompt, so only the broker's question is shown.
func recentExchanges(history []models.AIHistory, agent string, n int) []models.AIHistory {
	var picked []models.AIHistory
	for _, h := range history {
		if h.Agent == agent && !h.Fallback {
			picked = append(picked, h)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].CreatedAt.Equal(picked[j].CreatedAt) {
			return picked[i].ID > picked[j].ID
		}
		return picked[i].CreatedAt.After(picked[j].CreatedAt)
	})
	if len(picked) > n {
		picked = picked[:n]
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	for i := range picked {
		picked[i].Prompt = questionOf(picked[i].Prompt)
	}
	return picked
}

const questionHeader = "## Pergunta do corretor\n"

func questionOf(prompt string) string {
	if i := strings.LastIndex(prompt, questionHeader); i >= 0 {
		return strings.TrimSpace(prompt[i+len(questionHeader):])
	}
	return strings.TrimSpace(prompt)
}
