package assistant

import (
	"fmt"
	"math"
	"strings"
	"time"

	"imob-crm/pkg/models"
)

// formatBRL renders 850000 as "R$ 850.000,00".
func formatBRL(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	units := cents / 100

	digits := fmt.Sprintf("%d", units)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := fmt.Sprintf("R$ %s,%02d", b.String(), cents%100)
	if neg {
		return "-" + out
	}
	return out
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// leadSummary is the one-line identity used by several prompts.
func leadSummary(l *models.Lead) string {
	if l == nil {
		return "Lead não informado"
	}
	return fmt.Sprintf("%s (score %d/100, status %s)", l.Name, l.Score, orDash(l.Status))
}

func propertySummary(p *models.Property) string {
	if p == nil {
		return "Nenhum imóvel vinculado"
	}

	kind := "Imóvel avulso"
	if p.Kind == models.PropertyKindDevelopment {
		kind = "Empreendimento"
		if p.Developer != "" {
			kind += " da " + p.Developer
		}
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s: %s", kind, p.Title))
	if loc := strings.Trim(strings.Join([]string{p.Neighborhood, p.City}, ", "), ", "); loc != "" {
		parts = append(parts, loc)
	}
	if p.Price > 0 {
		parts = append(parts, formatBRL(p.Price))
	}
	if p.Bedrooms > 0 {
		parts = append(parts, fmt.Sprintf("%d quartos", p.Bedrooms))
	}
	if p.AreaM2 > 0 {
		parts = append(parts, fmt.Sprintf("%.0f m²", p.AreaM2))
	}
	if p.ParkingSpots > 0 {
		parts = append(parts, fmt.Sprintf("%d vagas", p.ParkingSpots))
	}
	return strings.Join(parts, " | ")
}

// stageLabels are the display names of the pipeline stages.
var stageLabels = map[string]string{
	models.StageNewLead:       "Novo lead",
	models.StageFirstContact:  "Primeiro contato",
	models.StageQualification: "Qualificação",
	models.StageVisit:         "Visita agendada",
	models.StageProposal:      "Proposta enviada",
	models.StageNegotiation:   "Negociação",
	models.StageWon:           "Fechado (ganho)",
	models.StageLost:          "Fechado (perdido)",
}

func stageLabel(stage string) string {
	if l, ok := stageLabels[stage]; ok {
		return l
	}
	return stage
}
