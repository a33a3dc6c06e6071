// Package summary asks a language model for a short briefing on pending
// movements. It is decorative: every failure becomes a message, never an
// error.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/erazemk/cautela/internal/model"
)

// Messages returned instead of a summary.
const (
	MsgNoKey     = "Erro: chave de API não configurada. Defina CAUTELA_OPENAI_KEY."
	MsgNoPending = "Não há materiais pendentes para análise no momento."
	MsgEmpty     = "O modelo gerou uma resposta vazia."
	MsgFailed    = "Ocorreu um erro ao processar a análise inteligente. Verifique a conexão."
)

const systemPrompt = "Você é o assistente da Seção de Apoio Operacional (SAO) de um batalhão de bombeiros militar. " +
	"Sua linguagem deve ser técnica, militar, precisa e prestativa."

// Summarizer produces a briefing for a set of movements.
type Summarizer interface {
	Summarize(ctx context.Context, records []model.Movement) string
}

// OpenAI summarizes with the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  shared.ChatModel
}

// NewOpenAI returns a summarizer. With an empty apiKey every call answers
// MsgNoKey.
func NewOpenAI(apiKey string, opts ...option.RequestOption) *OpenAI {
	if apiKey == "" {
		return &OpenAI{}
	}
	c := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAI{client: &c, model: shared.ChatModelGPT4oMini}
}

// Prompt lists the pending records one per line.
func Prompt(records []model.Movement) (string, int) {
	var b strings.Builder
	b.WriteString("Analise a seguinte lista de materiais acautelados e forneça um resumo executivo rápido. ")
	b.WriteString("Liste os itens mais críticos ou quem está com mais materiais pendentes, de forma amigável e profissional.\n\n")

	n := 0
	for _, m := range records {
		if m.Status != model.StatusPending {
			continue
		}
		n++
		fmt.Fprintf(&b, "%s (%s) - %s [%s] em %s, previsão %s\n",
			m.Name, m.Rank, m.Material, m.EffectiveOrigin(),
			m.CheckedOutAt.Format("02/01/2006"), m.EstimatedReturn.Format())
	}
	return b.String(), n
}

func (s *OpenAI) Summarize(ctx context.Context, records []model.Movement) string {
	if s.client == nil {
		return MsgNoKey
	}
	prompt, n := Prompt(records)
	if n == 0 {
		return MsgNoPending
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		slog.Warn("summary request failed", "error", err)
		return MsgFailed
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return MsgEmpty
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
