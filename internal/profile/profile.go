// Package profile accumulates structured facts about a lead from free-text
// chat messages and scores how ready the lead is to buy.
package profile

import (
	"encoding/json"
	"math"
	"strconv"
)

// Profile field names
const (
	FieldFinalidade  = "finalidade"
	FieldOrcamento   = "orcamento"
	FieldQtdPessoas  = "qtdPessoas"
	FieldTipoFamilia = "tipoFamilia"
	FieldUrgencia    = "urgencia"
	FieldTelefone    = "telefone"
	FieldEmail       = "email"
)

// Values produced by the keyword rules
const (
	FinalidadeMoradia      = "moradia"
	FinalidadeInvestimento = "investimento"

	FamiliaCasal   = "casal"
	FamiliaSolo    = "solo"
	FamiliaFamilia = "familia"

	UrgenciaAlta  = "alta"
	UrgenciaMedia = "media"
	UrgenciaBaixa = "baixa"
)

// RequiredFields must all be present for a profile to be complete.
var RequiredFields = []string{FieldFinalidade, FieldOrcamento}

// DesiredFields needs at least one present for a profile to be complete.
var DesiredFields = []string{FieldQtdPessoas, FieldTipoFamilia, FieldUrgencia}

// Profile is a free-form field→value map owned by a conversation. Numeric
// values may be int64 when freshly extracted or float64 after a JSON round
// trip; use Int to read them.
type Profile map[string]interface{}

// Clone returns a shallow copy. A nil profile clones to an empty one.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether field holds a non-empty value.
func (p Profile) Has(field string) bool {
	v, ok := p[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// String returns the field as a string, or "" if it is missing or not a string.
func (p Profile) String(field string) string {
	s, _ := p[field].(string)
	return s
}

// Int returns a numeric field as int64.
func (p Profile) Int(field string) (int64, bool) {
	switch v := p[field].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(math.Round(v)), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Complete reports whether every required field is present and at least one
// desired field is present.
func Complete(p Profile) bool {
	for _, f := range RequiredFields {
		if !p.Has(f) {
			return false
		}
	}
	for _, f := range DesiredFields {
		if p.Has(f) {
			return true
		}
	}
	return false
}

// Missing lists required fields that are absent, then desired fields when
// none of them is present. The conversational prompt asks about these.
func Missing(p Profile) []string {
	var out []string
	for _, f := range RequiredFields {
		if !p.Has(f) {
			out = append(out, f)
		}
	}
	anyDesired := false
	for _, f := range DesiredFields {
		if p.Has(f) {
			anyDesired = true
			break
		}
	}
	if !anyDesired {
		out = append(out, DesiredFields...)
	}
	return out
}
