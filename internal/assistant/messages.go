package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"imob-crm/internal/ai"
	"imob-crm/pkg/models"
)

// MessageFallback is returned when no provider could draft the message.
const MessageFallback = "Não foi possível gerar a mensagem no momento. Tente novamente mais tarde."

// ErrUnknownMessageType is returned for a message type outside MessageTypes.
var ErrUnknownMessageType = errors.New("unknown message type")

// Message types
const (
	MessageFirstContact = "primeiro_contato"
	MessageFollowUp     = "follow_up"
	MessageVisitInvite  = "convite_visita"
	MessageProposal     = "proposta"
	MessageNegotiation  = "negociacao"
	MessagePostSale     = "pos_venda"
)

// MessageTypes lists the accepted message types in display order.
var MessageTypes = []string{
	MessageFirstContact,
	MessageFollowUp,
	MessageVisitInvite,
	MessageProposal,
	MessageNegotiation,
	MessagePostSale,
}

var messageTemplates = map[string]string{
	MessageFirstContact: "Escreva a primeira mensagem de contato com o lead. Apresente o corretor, mostre que entendeu o interesse dele e termine com uma pergunta simples que convide a responder.",
	MessageFollowUp:     "Escreva uma mensagem de follow-up para retomar o contato sem parecer insistente. Traga um motivo novo para conversar e proponha um próximo passo.",
	MessageVisitInvite:  "Escreva um convite para visitar o imóvel. Destaque dois ou três diferenciais que combinam com o perfil do lead e sugira duas opções de dia e horário.",
	MessageProposal:     "Escreva a mensagem que acompanha o envio da proposta. Resuma valor e condições com clareza, reforce o valor do imóvel e combine um prazo para resposta.",
	MessageNegotiation:  "Escreva uma mensagem para conduzir a negociação. Reconheça a posição do lead, responda objeções com argumentos de valor e proponha um caminho para fechar.",
	MessagePostSale:     "Escreva uma mensagem de pós-venda. Agradeça a confiança, ofereça ajuda com os próximos passos e peça, com naturalidade, indicações de amigos ou familiares.",
}

const copywriterSystemPrompt = `Você é um copywriter especializado em vendas imobiliárias no Brasil.
Escreva mensagens curtas para WhatsApp, em português do Brasil, com tom cordial, humano e persuasivo.
Regras:
- No máximo 5 frases.
- Use o primeiro nome do lead.
- Não use hashtags nem excesso de emojis (no máximo um).
- Não invente dados que não foram informados.
- Assine com o nome do corretor.
Responda apenas com o texto da mensagem.`

// MessageRequest describes the message the broker wants drafted
type MessageRequest struct {
	Type       string
	BrokerName string
	Context    string
}

// ValidMessageType reports whether t is one of MessageTypes.
func ValidMessageType(t string) bool {
	_, ok := messageTemplates[t]
	return ok
}

// DraftMessage writes a short persuasive message for a negotiation. Only an
// unknown message type is returned as an error; provider failures produce
// MessageFallback.
func (a *Assistant) DraftMessage(ctx context.Context, neg *models.Negotiation, req MessageRequest) (*Result, error) {
	if !ValidMessageType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, req.Type)
	}

	user := buildMessagePrompt(neg, req)
	return a.chat(ctx, models.AgentCopywriter, copywriterSystemPrompt, user, MessageFallback, ai.Options{
		Temperature: ai.Temperature(0.8),
		MaxTokens:   400,
	}), nil
}

func buildMessagePrompt(neg *models.Negotiation, req MessageRequest) string {
	var b strings.Builder

	b.WriteString(messageTemplates[req.Type])
	b.WriteString("\n\n## Dados\n")

	if neg.Lead != nil {
		fmt.Fprintf(&b, "Lead: %s\n", neg.Lead.Name)
		if neg.Lead.Finalidade != "" {
			fmt.Fprintf(&b, "Finalidade: %s\n", neg.Lead.Finalidade)
		}
		if neg.Lead.Orcamento > 0 {
			fmt.Fprintf(&b, "Orçamento: %s\n", formatBRL(neg.Lead.Orcamento))
		}
	}
	fmt.Fprintf(&b, "Imóvel: %s\n", propertySummary(neg.Property))
	if neg.ProposalValue != nil {
		fmt.Fprintf(&b, "Valor da proposta: %s\n", formatBRL(*neg.ProposalValue))
	}
	fmt.Fprintf(&b, "Corretor: %s\n", orDash(req.BrokerName))

	if extra := strings.TrimSpace(req.Context); extra != "" {
		b.WriteString("\n## Contexto adicional\n")
		b.WriteString(extra)
		b.WriteByte('\n')
	}
	return b.String()
}
