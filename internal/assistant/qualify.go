package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"imob-crm/internal/ai"
	"imob-crm/pkg/models"
)

// Qualification levels, coldest first
const (
	NivelFrio        = "frio"
	NivelMorno       = "morno"
	NivelQuente      = "quente"
	NivelMuitoQuente = "muito_quente"
)

// Qualification is the structured lead assessment
type Qualification struct {
	Score           int      `json:"score"`
	Nivel           string   `json:"nivel"`
	Analise         string   `json:"analise"`
	Recomendacoes   []string `json:"recomendacoes"`
	SinaisPositivos []string `json:"sinaisPositivos"`
	SinaisNegativos []string `json:"sinaisNegativos"`
}

// QualificationFallback is the assessment used when the provider chain or
// the JSON parse fails.
func QualificationFallback() Qualification {
	return Qualification{
		Score:           0,
		Nivel:           NivelFrio,
		Analise:         "Dados insuficientes para qualificar o lead no momento.",
		Recomendacoes:   []string{"Complete o cadastro do lead e registre as interações antes de qualificar novamente."},
		SinaisPositivos: []string{},
		SinaisNegativos: []string{},
	}
}

// NivelForScore maps a score to its level. Used when the model answers with
// a level outside the known set.
func NivelForScore(score int) string {
	switch {
	case score >= 80:
		return NivelMuitoQuente
	case score >= 60:
		return NivelQuente
	case score >= 30:
		return NivelMorno
	default:
		return NivelFrio
	}
}

func validNivel(n string) bool {
	switch n {
	case NivelFrio, NivelMorno, NivelQuente, NivelMuitoQuente:
		return true
	}
	return false
}

// ErrMalformedQualification is wrapped by ParseQualification errors.
var ErrMalformedQualification = errors.New("malformed qualification")

const qualifierInstructions = `Você é um analista de qualificação de leads de uma imobiliária brasileira.
Avalie a prontidão de compra do lead abaixo e responda APENAS com um objeto JSON no formato:
{
  "score": número inteiro de 0 a 100,
  "nivel": "frio" | "morno" | "quente" | "muito_quente",
  "analise": "resumo curto da situação do lead",
  "recomendacoes": ["ação recomendada", "..."],
  "sinaisPositivos": ["sinal de compra", "..."],
  "sinaisNegativos": ["sinal de risco", "..."]
}
Considere dados de contato, orçamento, finalidade, urgência, engajamento nas negociações e etapa do funil.`

// QualifyResult carries the assessment and the exchange behind it
type QualifyResult struct {
	Qualification Qualification
	*Result
}

// Qualify scores a lead in JSON mode. The lead should carry its
// Negotiations (with Property and Activities) preloaded.
func (a *Assistant) Qualify(ctx context.Context, lead *models.Lead) *QualifyResult {
	prompt := qualifierInstructions + "\n\n" + buildLeadDossier(lead)
	res := &Result{UserPrompt: prompt}
	out := &QualifyResult{Result: res}

	resp, err := a.gen.Generate(ctx, prompt, ai.Options{
		Temperature: ai.Temperature(0.3),
		MaxTokens:   800,
		JSONOutput:  true,
		Agent:       models.AgentQualifier,
	})
	if err == nil {
		var q Qualification
		if q, err = ParseQualification(resp.Content); err == nil {
			res.Response = resp
			res.Content = resp.Content
			out.Qualification = q
			return out
		}
	}

	a.degrade(models.AgentQualifier, err)
	res.Err = err
	out.Qualification = QualificationFallback()
	if raw, mErr := json.Marshal(out.Qualification); mErr == nil {
		res.Content = string(raw)
	}
	return out
}

func buildLeadDossier(lead *models.Lead) string {
	var b strings.Builder

	b.WriteString("## Lead\n")
	fmt.Fprintf(&b, "Nome: %s\n", lead.Name)
	fmt.Fprintf(&b, "Status: %s | Origem: %s | Score atual: %d\n", orDash(lead.Status), orDash(lead.Source), lead.Score)
	fmt.Fprintf(&b, "Telefone informado: %s | E-mail informado: %s\n", yesNo(lead.Phone != ""), yesNo(lead.Email != ""))
	fmt.Fprintf(&b, "Finalidade: %s\n", orDash(lead.Finalidade))
	if lead.Orcamento > 0 {
		fmt.Fprintf(&b, "Orçamento: %s\n", formatBRL(lead.Orcamento))
	} else {
		b.WriteString("Orçamento: -\n")
	}
	fmt.Fprintf(&b, "Composição familiar: %s", orDash(lead.TipoFamilia))
	if lead.QtdPessoas > 0 {
		fmt.Fprintf(&b, " (%d pessoas)", lead.QtdPessoas)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Urgência: %s\n", orDash(lead.Urgencia))
	if notes := strings.TrimSpace(lead.Notes); notes != "" {
		fmt.Fprintf(&b, "Observações: %s\n", notes)
	}

	b.WriteString("\n## Negociações\n")
	if len(lead.Negotiations) == 0 {
		b.WriteString("Nenhuma negociação registrada.\n")
	}
	for _, n := range lead.Negotiations {
		fmt.Fprintf(&b, "- Etapa %s | %s | %d atividades", stageLabel(n.Stage), propertySummary(n.Property), len(n.Activities))
		if n.ProposalValue != nil {
			fmt.Fprintf(&b, " | proposta %s", formatBRL(*n.ProposalValue))
		}
		if n.LostReason != "" {
			fmt.Fprintf(&b, " | motivo da perda: %s", n.LostReason)
		}
		b.WriteByte('\n')
		for _, act := range recentActivities(n.Activities, 3) {
			fmt.Fprintf(&b, "    %s [%s]: %s\n", formatDate(act.OccurredAt), act.Kind, orDash(act.Description))
		}
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "sim"
	}
	return "não"
}

type rawQualification struct {
	Score           *float64 `json:"score"`
	Nivel           string   `json:"nivel"`
	Analise         string   `json:"analise"`
	Recomendacoes   []string `json:"recomendacoes"`
	SinaisPositivos []string `json:"sinaisPositivos"`
	SinaisNegativos []string `json:"sinaisNegativos"`
}

// ParseQualification decodes a model answer. It tolerates markdown code
// fences and text around the JSON object, clamps the score into [0,100] and
// derives the level from the score when the model's level is unknown.
func ParseQualification(content string) (Qualification, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return Qualification{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedQualification)
	}

	var raw rawQualification
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return Qualification{}, fmt.Errorf("%w: %v", ErrMalformedQualification, err)
	}
	if raw.Score == nil {
		return Qualification{}, fmt.Errorf("%w: missing score", ErrMalformedQualification)
	}

	score := math.Max(0, math.Min(100, math.Round(*raw.Score)))
	q := Qualification{
		Score:           int(score),
		Nivel:           strings.ToLower(strings.TrimSpace(raw.Nivel)),
		Analise:         strings.TrimSpace(raw.Analise),
		Recomendacoes:   nonNil(raw.Recomendacoes),
		SinaisPositivos: nonNil(raw.SinaisPositivos),
		SinaisNegativos: nonNil(raw.SinaisNegativos),
	}
	if !validNivel(q.Nivel) {
		q.Nivel = NivelForScore(q.Score)
	}
	return q, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
