package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Amounts(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    int64
		found   bool
	}{
		{name: "mil", message: "tenho uns 300 mil", want: 300000, found: true},
		{name: "milhões", message: "até 2 milhões", want: 2000000, found: true},
		{name: "milhão", message: "1 milhão no máximo", want: 1000000, found: true},
		{name: "k without space", message: "orçamento 450k", want: 450000, found: true},
		{name: "bare m", message: "uns 3 m", want: 3000000, found: true},
		{name: "first match wins", message: "entre 500 mil e 700 mil", want: 500000, found: true},
		{name: "decimal is not matched", message: "1.5 m", found: false},
		{name: "decimal with comma is not matched", message: "1,5 milhão", found: false},
		{name: "no unit", message: "tenho 800", found: false},
		{name: "minutes are not millions", message: "chego em 5 minutos", found: false},
		{name: "largest amount that fits", message: "9223372036854 milhões", want: 9223372036854000000, found: true},
		{name: "millions overflow is rejected", message: "tenho 10000000000000 milhões", found: false},
		{name: "thousands overflow is rejected", message: "9223372036854776 mil", found: false},
		{name: "too many digits is rejected", message: "99999999999999999999 mil", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Extract(tt.message, nil)
			got, ok := p.Int(FieldOrcamento)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtract_FamilyTypePrecedence(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{message: "eu e minha esposa, moramos com os filhos", want: FamiliaCasal},
		{message: "moro sozinho mas quero espaço para a família", want: FamiliaSolo},
		{message: "somos eu, meu marido e as crianças", want: FamiliaCasal},
		{message: "tenho dois filhos", want: FamiliaFamilia},
		{message: "chegou um bebê", want: FamiliaFamilia},
		{message: "sou solteira", want: FamiliaSolo},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.message, nil).String(FieldTipoFamilia))
		})
	}
}

func TestExtract_Urgency(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{message: "tenho pressa", want: UrgenciaAlta},
		{message: "é urgente", want: UrgenciaAlta},
		{message: "sem pressa nenhuma", want: UrgenciaBaixa},
		{message: "não tenho pressa", want: UrgenciaBaixa},
		{message: "nos próximos meses", want: UrgenciaMedia},
		{message: "quero ver apartamentos", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.message, nil).String(FieldUrgencia))
		})
	}
}

func TestExtract_ContactAndHeadcount(t *testing.T) {
	p := Extract("meu zap é (11) 98765-4321 e email Joao.Silva@Example.com, somos 4 pessoas", nil)

	assert.Equal(t, "11987654321", p.String(FieldTelefone))
	assert.Equal(t, "joao.silva@example.com", p.String(FieldEmail))
	n, ok := p.Int(FieldQtdPessoas)
	require.True(t, ok)
	assert.Equal(t, int64(4), n)
}

func TestExtract_Finalidade(t *testing.T) {
	assert.Equal(t, FinalidadeMoradia, Extract("quero pra morar", nil).String(FieldFinalidade))
	assert.Equal(t, FinalidadeInvestimento, Extract("é para investir e alugar", nil).String(FieldFinalidade))
	assert.Equal(t, FinalidadeMoradia, Extract("morar agora e alugar depois", nil).String(FieldFinalidade))
}

func TestExtract_AccumulatesAndOverwrites(t *testing.T) {
	current := Profile{FieldFinalidade: FinalidadeMoradia, FieldUrgencia: UrgenciaBaixa}

	next := Extract("mudou tudo, agora tenho pressa", current)

	assert.Equal(t, FinalidadeMoradia, next.String(FieldFinalidade))
	assert.Equal(t, UrgenciaAlta, next.String(FieldUrgencia))
	// input is not mutated
	assert.Equal(t, UrgenciaBaixa, current.String(FieldUrgencia))
}

func TestExtract_EndToEndMessage(t *testing.T) {
	p := Extract("Quero comprar pra morar com minha família, uns 800 mil, e tenho pressa", Profile{})

	assert.Equal(t, FinalidadeMoradia, p.String(FieldFinalidade))
	amount, ok := p.Int(FieldOrcamento)
	require.True(t, ok)
	assert.Equal(t, int64(800000), amount)
	assert.Equal(t, FamiliaFamilia, p.String(FieldTipoFamilia))
	assert.Equal(t, UrgenciaAlta, p.String(FieldUrgencia))
	assert.True(t, Complete(p))
}

func TestComplete_Boundaries(t *testing.T) {
	required := []Profile{
		{},
		{FieldFinalidade: FinalidadeMoradia},
		{FieldOrcamento: int64(500000)},
		{FieldFinalidade: FinalidadeMoradia, FieldOrcamento: int64(500000)},
	}
	desired := []Profile{
		{},
		{FieldQtdPessoas: int64(3)},
		{FieldTipoFamilia: FamiliaCasal},
		{FieldUrgencia: UrgenciaMedia},
	}

	for i, req := range required {
		for j, des := range desired {
			p := req.Clone()
			for k, v := range des {
				p[k] = v
			}
			want := i == 3 && j > 0
			assert.Equal(t, want, Complete(p), "required=%v desired=%v", req, des)
		}
	}
}

func TestComplete_EmptyStringIsMissing(t *testing.T) {
	p := Profile{FieldFinalidade: "", FieldOrcamento: float64(300000), FieldUrgencia: UrgenciaAlta}
	assert.False(t, Complete(p))
	assert.Equal(t, []string{FieldFinalidade}, Missing(p))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0, Score(nil))
	assert.Equal(t, 25, Score(Profile{FieldOrcamento: float64(1)}))
	assert.Equal(t, 15, Score(Profile{FieldUrgencia: UrgenciaAlta}))
	assert.Equal(t, 10, Score(Profile{FieldUrgencia: UrgenciaMedia}))
	assert.Equal(t, 5, Score(Profile{FieldUrgencia: UrgenciaBaixa}))
	assert.Equal(t, 0, Score(Profile{FieldUrgencia: "talvez"}))

	full := Profile{
		FieldTelefone:    "11987654321",
		FieldEmail:       "a@b.com",
		FieldFinalidade:  FinalidadeMoradia,
		FieldOrcamento:   int64(800000),
		FieldQtdPessoas:  int64(4),
		FieldTipoFamilia: FamiliaFamilia,
		FieldUrgencia:    UrgenciaAlta,
	}
	assert.Equal(t, 100, Score(full))
}

func TestScore_MonotonicAndClamped(t *testing.T) {
	order := []struct {
		field string
		value interface{}
	}{
		{FieldUrgencia, UrgenciaBaixa},
		{FieldTelefone, "11987654321"},
		{FieldEmail, "a@b.com"},
		{FieldFinalidade, FinalidadeInvestimento},
		{FieldOrcamento, int64(1)},
		{FieldQtdPessoas, int64(2)},
		{FieldTipoFamilia, FamiliaSolo},
	}

	p := Profile{}
	prev := Score(p)
	for _, step := range order {
		p[step.field] = step.value
		s := Score(p)
		assert.GreaterOrEqual(t, s, prev, "adding %s lowered the score", step.field)
		assert.LessOrEqual(t, s, 100)
		prev = s
	}

	assert.Equal(t, 100, Clamp(250))
	assert.Equal(t, 0, Clamp(-3))
}
