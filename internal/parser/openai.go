package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"bolso/internal/core"
	applog "bolso/internal/log"
)

const systemPrompt = `Você extrai uma transação financeira de uma frase em linguagem natural.
Responda SOMENTE com um objeto JSON minificado. Sem comentários, sem markdown.

REGRAS:
- "type" DEVE ser exatamente "INCOME" ou "EXPENSE".
- "category" DEVE ser exatamente uma de: FIXED, COMFORT, GOALS, PLEASURES, FREEDOM, KNOWLEDGE. Nunca invente categorias.
- Para INCOME omita "category".
- "amount" é um número positivo em reais (BRL). "gastei 50" significa 50.00.
- "date" DEVE ser ISO YYYY-MM-DD. Se a frase não menciona data, omita o campo.
- "description" é curta, em português, sem o valor. Exemplo: "Almoço no shopping".

ESQUEMA DE SAÍDA:
{"type":string,"description":string,"amount":number,"category":string,"date":string}`

// Options configures the OpenAI-compatible parser adapter.
type Options struct {
	BaseURL         string // empty means the public OpenAI endpoint
	APIKey          string
	Model           string
	TranscribeModel string
	Timeout         time.Duration // per-request cap, zero means no cap
}

// OpenAIParser talks to an OpenAI-compatible endpoint. Text goes
// straight to chat completion; audio is transcribed first and the
// transcript reuses the text path.
type OpenAIParser struct {
	client          *openai.Client
	model           string
	transcribeModel string
	logger          *applog.Logger
}

var _ TransactionParser = (*OpenAIParser)(nil)

func NewOpenAIParser(opts Options, logger *applog.Logger) *OpenAIParser {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &OpenAIParser{
		client:          openai.NewClientWithConfig(cfg),
		model:           opts.Model,
		transcribeModel: opts.TranscribeModel,
		logger:          logger.WithComponent(applog.ComponentParser),
	}
}

func (p *OpenAIParser) ParseText(ctx context.Context, text string) (core.ParsedInput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.ParsedInput{}, ErrEmptyInput
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		MaxTokens:   300,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return core.ParsedInput{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.ParsedInput{}, fmt.Errorf("%w: no completion choices", ErrParseFailure)
	}

	content := resp.Choices[0].Message.Content
	p.logger.DebugContext(ctx, "Model response received",
		applog.FieldOperation, applog.OpParse,
		"content_length", len(content))

	parsed, err := decodePayload(content)
	if err != nil {
		p.logger.WarnContext(ctx, "Model response rejected",
			applog.FieldOperation, applog.OpParse,
			applog.FieldError, err.Error())
		return core.ParsedInput{}, err
	}
	return parsed, nil
}

func (p *OpenAIParser) ParseAudio(ctx context.Context, audio []byte, mimeType string) (core.ParsedInput, error) {
	if len(audio) == 0 {
		return core.ParsedInput{}, ErrEmptyInput
	}

	transcript, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.transcribeModel,
		Reader:   bytes.NewReader(audio),
		FilePath: audioFileName(mimeType),
	})
	if err != nil {
		return core.ParsedInput{}, fmt.Errorf("transcribe audio: %w", err)
	}

	p.logger.DebugContext(ctx, "Audio transcribed",
		applog.FieldOperation, applog.OpParse,
		"transcript_length", len(transcript.Text))

	if strings.TrimSpace(transcript.Text) == "" {
		return core.ParsedInput{}, fmt.Errorf("%w: empty transcript", ErrParseFailure)
	}
	return p.ParseText(ctx, transcript.Text)
}

// audioFileName gives the transcription API a file name whose extension
// matches the recording format. The library sniffs the format from it.
func audioFileName(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"):
		return "voice.ogg"
	case strings.Contains(mimeType, "wav"):
		return "voice.wav"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return "voice.m4a"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "voice.mp3"
	default:
		return "voice.webm"
	}
}

// llmPayload mirrors the JSON schema the prompt demands.
type llmPayload struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
}

// decodePayload turns raw model output into a validated ParsedInput.
// Rules for the untrusted fields:
//   - type must be INCOME or EXPENSE
//   - amount must parse to positive cents
//   - an EXPENSE without a category falls back to FIXED; an unknown
//     category is an error, never a guess
//   - a malformed date is dropped so downstream falls back to today
func decodePayload(content string) (core.ParsedInput, error) {
	content = stripMarkdownFence(content)

	var payload llmPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return core.ParsedInput{}, fmt.Errorf("%w: malformed JSON: %v", ErrParseFailure, err)
	}

	txType := core.TransactionType(strings.ToUpper(strings.TrimSpace(payload.Type)))
	if txType != core.TypeIncome && txType != core.TypeExpense {
		return core.ParsedInput{}, fmt.Errorf("%w: type %q", ErrParseFailure, payload.Type)
	}

	description := strings.TrimSpace(payload.Description)
	if description == "" {
		return core.ParsedInput{}, fmt.Errorf("%w: empty description", ErrParseFailure)
	}

	cents, err := core.ParseDecimalToCents(payload.Amount.String())
	if err != nil {
		return core.ParsedInput{}, fmt.Errorf("%w: amount %q", ErrParseFailure, payload.Amount.String())
	}

	var category core.Category
	switch raw := strings.TrimSpace(payload.Category); {
	case txType == core.TypeIncome:
		// Income has no category; whatever the model sent is ignored.
	case raw == "":
		category = core.CategoryFixed
	default:
		category, err = core.ParseCategory(raw)
		if err != nil {
			return core.ParsedInput{}, err
		}
	}

	date := ""
	if d, err := core.ParseISODate(payload.Date); err == nil && payload.Date != "" {
		date = d.ISO()
	}

	return core.ParsedInput{
		Type:        txType,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Date:        date,
	}, nil
}

// stripMarkdownFence removes a ```json ... ``` wrapper some models add
// despite the prompt.
func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
