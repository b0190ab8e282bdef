package profile

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Rule maps a pattern match in a message to a profile field. Transform
// receives the submatches of the first match; returning false discards the
// match and the rule tries the next one.
type Rule struct {
	Field     string
	Pattern   *regexp.Regexp
	Transform func(match []string) (interface{}, bool)
}

// Rules is an ordered rule set. For each field the first rule that produces a
// value wins, so rule order is the precedence between keyword groups.
type Rules []Rule

// Apply returns a copy of current extended with every field found in message.
// Fields already in current are overwritten when the message mentions them
// again; fields the message does not mention are kept.
func (rs Rules) Apply(message string, current Profile) Profile {
	out := current.Clone()
	if strings.TrimSpace(message) == "" {
		return out
	}

	done := make(map[string]bool, len(rs))
	for _, r := range rs {
		if done[r.Field] {
			continue
		}
		if v, ok := r.match(message); ok {
			out[r.Field] = v
			done[r.Field] = true
		}
	}
	return out
}

func (r Rule) match(message string) (interface{}, bool) {
	for _, m := range r.Pattern.FindAllStringSubmatch(message, -1) {
		if r.Transform == nil {
			return m[0], true
		}
		if v, ok := r.Transform(m); ok {
			return v, true
		}
	}
	return nil, false
}

// Extract runs DefaultRules over message.
func Extract(message string, current Profile) Profile {
	return DefaultRules.Apply(message, current)
}

// words builds a case-insensitive pattern matching any alternative as a whole
// word. Boundaries are Unicode-aware so accented endings ("bebê") still match.
func words(alternatives ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(alternatives, "|") + `)(?:$|[^\p{L}\p{N}_])`)
}

func constant(v string) func([]string) (interface{}, bool) {
	return func([]string) (interface{}, bool) { return v, true }
}

var (
	phonePattern = regexp.MustCompile(`(?:\+?55[\s-]?)?\(?\d{2}\)?[\s-]?9?\d{4}[\s-]?\d{4}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Integer amount followed by a unit. The leading class refuses a digit,
	// dot or comma so "1.5 m" does not match as "5 m".
	amountPattern = regexp.MustCompile(`(?i)(?:^|[^\d.,])(\d+)\s*(milh\p{L}*|mil|k|m)(?:$|[^\p{L}\p{N}_])`)

	headcountPattern = regexp.MustCompile(`(?i)(?:^|[^\d.,])(\d+)\s*(pessoas?|filhos?|filhas?|moradores?)(?:$|[^\p{L}\p{N}_])`)
)

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseAmount scales "<n> <unit>" into an absolute currency amount.
func parseAmount(m []string) (interface{}, bool) {
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, false
	}
	var scale int64
	unit := strings.ToLower(m[2])
	switch {
	case strings.Contains(unit, "milh") || unit == "m":
		scale = 1_000_000
	case unit == "mil" || unit == "k":
		scale = 1_000
	default:
		return nil, false
	}
	if n > math.MaxInt64/scale {
		return nil, false
	}
	return n * scale, true
}

func parseHeadcount(m []string) (interface{}, bool) {
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return nil, false
	}
	return n, true
}

// DefaultRules is the extraction rule set for Brazilian Portuguese chat.
// Order matters within a field: moradia before investimento, casal before
// solo before familia, baixa before alta before media.
var DefaultRules = Rules{
	{
		Field:     FieldTelefone,
		Pattern:   phonePattern,
		Transform: func(m []string) (interface{}, bool) { return digitsOnly(m[0]), true },
	},
	{
		Field:     FieldEmail,
		Pattern:   emailPattern,
		Transform: func(m []string) (interface{}, bool) { return strings.ToLower(m[0]), true },
	},

	{Field: FieldFinalidade, Pattern: words(`morar`, `moradia`, `residir`, `viver`, `resid[eê]ncia`), Transform: constant(FinalidadeMoradia)},
	{Field: FieldFinalidade, Pattern: words(`investir`, `investimento`, `investidor`, `alugar`, `aluguel`, `renda`, `revender`, `valoriza\p{L}*`), Transform: constant(FinalidadeInvestimento)},

	{Field: FieldOrcamento, Pattern: amountPattern, Transform: parseAmount},
	{Field: FieldQtdPessoas, Pattern: headcountPattern, Transform: parseHeadcount},

	{Field: FieldTipoFamilia, Pattern: words(`esposa`, `esposo`, `marido`, `mulher`, `namorad[ao]`, `noiv[ao]`, `casal`, `casad[ao]s?`, `eu e (?:minha|meu)`), Transform: constant(FamiliaCasal)},
	{Field: FieldTipoFamilia, Pattern: words(`sozinh[ao]`, `solteir[ao]`, `s[oó] eu`, `apenas eu`, `somente eu`), Transform: constant(FamiliaSolo)},
	{Field: FieldTipoFamilia, Pattern: words(`fam[ií]lia`, `filhos?`, `filhas?`, `crian[cç]as?`, `beb[eê]s?`), Transform: constant(FamiliaFamilia)},

	{Field: FieldUrgencia, Pattern: words(`sem pressa`, `n[aã]o tenho pressa`, `sem urg[eê]ncia`, `com calma`, `longo prazo`, `ano que vem`, `pr[oó]ximo ano`, `s[oó] pesquisando`, `apenas pesquisando`), Transform: constant(UrgenciaBaixa)},
	{Field: FieldUrgencia, Pattern: words(`pressa`, `urgente`, `urg[eê]ncia`, `imediat\p{L}*`, `o quanto antes`, `o mais r[aá]pido`, `esse m[eê]s`, `este m[eê]s`), Transform: constant(UrgenciaAlta)},
	{Field: FieldUrgencia, Pattern: words(`pr[oó]ximos meses`, `alguns meses`, `m[eé]dio prazo`, `esse ano`, `este ano`, `at[eé] o fim do ano`, `\d+ meses`, `seis meses`, `tr[eê]s meses`), Transform: constant(UrgenciaMedia)},
}
