package profile

// Weight is the score contribution of one present field.
type Weight struct {
	Field  string
	Points int
}

// Weights is the fixed additive rubric. urgencia is scored separately by
// level through UrgencyPoints.
var Weights = []Weight{
	{Field: FieldTelefone, Points: 15},
	{Field: FieldEmail, Points: 10},
	{Field: FieldFinalidade, Points: 20},
	{Field: FieldOrcamento, Points: 25},
	{Field: FieldQtdPessoas, Points: 10},
	{Field: FieldTipoFamilia, Points: 5},
}

// UrgencyPoints maps an urgencia level to its weight.
var UrgencyPoints = map[string]int{
	UrgenciaAlta:  15,
	UrgenciaMedia: 10,
	UrgenciaBaixa: 5,
}

// Score recomputes the 0-100 qualification score from scratch.
func Score(p Profile) int {
	total := 0
	for _, w := range Weights {
		if p.Has(w.Field) {
			total += w.Points
		}
	}
	total += UrgencyPoints[p.String(FieldUrgencia)]
	return Clamp(total)
}

// Clamp bounds a score to [0, 100].
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
