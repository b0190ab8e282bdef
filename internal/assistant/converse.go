package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"imob-crm/internal/ai"
	"imob-crm/internal/profile"
	"imob-crm/pkg/models"
)

// ConverseFallback is the reply used when no provider could answer.
const ConverseFallback = "Obrigado pela mensagem! Anotei tudo por aqui e um dos nossos corretores vai continuar o seu atendimento em instantes."

// converseHistoryLimit is how many prior turns go into the prompt.
const converseHistoryLimit = 10

const converseSystemPrompt = `Você é a assistente virtual de uma imobiliária e conversa com pessoas interessadas em comprar um imóvel.
Seu objetivo é entender o perfil da pessoa de forma leve e natural, como uma boa corretora faria no WhatsApp.
Regras:
- Responda em português do Brasil, em no máximo 2 frases curtas.
- Faça UMA pergunta por vez, sobre a informação mais importante que ainda falta.
- Não repita perguntas sobre o que já foi informado.
- Não use listas, formulários nem JSON.
- Quando o perfil estiver completo, agradeça e diga que um corretor vai entrar em contato com opções de imóveis.`

// fieldQuestions describes each profile field for the prompt.
var fieldQuestions = map[string]string{
	profile.FieldFinalidade:  "se o imóvel é para morar ou investir",
	profile.FieldOrcamento:   "o orçamento aproximado",
	profile.FieldQtdPessoas:  "quantas pessoas vão morar no imóvel",
	profile.FieldTipoFamilia: "a composição familiar (sozinho, casal ou família com filhos)",
	profile.FieldUrgencia:    "o prazo para a compra",
	profile.FieldTelefone:    "um telefone para contato",
	profile.FieldEmail:       "um e-mail",
}

// ConverseInput is one inbound lead message with its conversation state
type ConverseInput struct {
	Profile     profile.Profile
	History     []models.ConversationMessage
	Message     string
	VisitorName string
}

// Turn is the outcome of one conversational qualification step
type Turn struct {
	Reply    string
	Profile  profile.Profile
	Complete bool
	Score    int
	*Result
}

// Converse extracts profile facts from the newest message and asks the
// provider chain for a short, natural reply. The extraction does not depend
// on the provider call, so the profile is updated even when the reply falls
// back to ConverseFallback.
func (a *Assistant) Converse(ctx context.Context, in ConverseInput) *Turn {
	updated := profile.Extract(in.Message, in.Profile)
	complete := profile.Complete(updated)

	user := buildConversePrompt(in, updated, complete)
	res := a.chat(ctx, models.AgentConversational, converseSystemPrompt, user, ConverseFallback, ai.Options{
		Temperature: ai.Temperature(0.8),
		MaxTokens:   200,
	})

	return &Turn{
		Reply:    strings.TrimSpace(res.Content),
		Profile:  updated,
		Complete: complete,
		Score:    profile.Score(updated),
		Result:   res,
	}
}

func buildConversePrompt(in ConverseInput, p profile.Profile, complete bool) string {
	var b strings.Builder

	if name := strings.TrimSpace(in.VisitorName); name != "" {
		fmt.Fprintf(&b, "Nome da pessoa: %s\n\n", name)
	}

	b.WriteString("## O que já sabemos\n")
	known := knownFields(p)
	if len(known) == 0 {
		b.WriteString("Nada ainda.\n")
	}
	for _, line := range known {
		b.WriteString("- " + line + "\n")
	}

	if complete {
		b.WriteString("\nO perfil está completo. Encerre de forma simpática.\n")
	} else if missing := profile.Missing(p); len(missing) > 0 {
		b.WriteString("\n## Ainda falta descobrir\n")
		for _, f := range missing {
			b.WriteString("- " + fieldQuestions[f] + "\n")
		}
	}

	if turns := lastTurns(in.History, converseHistoryLimit); len(turns) > 0 {
		b.WriteString("\n## Conversa até agora\n")
		for _, m := range turns {
			who := "Pessoa"
			if m.Role == models.RoleAssistant {
				who = "Você"
			}
			fmt.Fprintf(&b, "%s: %s\n", who, m.Content)
		}
	}

	b.WriteString("\n## Nova mensagem\n")
	b.WriteString(strings.TrimSpace(in.Message))
	return b.String()
}

func knownFields(p profile.Profile) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		if p.Has(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == profile.FieldOrcamento {
			if n, ok := p.Int(k); ok {
				out = append(out, fmt.Sprintf("%s: %s", k, formatBRL(float64(n))))
				continue
			}
		}
		out = append(out, fmt.Sprintf("%s: %v", k, p[k]))
	}
	return out
}

// lastTurns returns at most n of the newest messages in chronological order.
func lastTurns(history []models.ConversationMessage, n int) []models.ConversationMessage {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
