package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/experia/internal/model"
)

// OpenAIModel prompts a chat model to behave as a few-shot span tagger.
// Any OpenAI-compatible endpoint works, including a local Ollama server.
type OpenAIModel struct {
	client *openai.Client
	model  string
	name   string
}

const systemPrompt = "You tag spans in music review sentences. Reply with a JSON object only."

// NewOpenAIModel creates a chat-completions backend
func NewOpenAIModel(cfg model.NeuralConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(cfg)

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	return &OpenAIModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  modelName,
		name:   model.BackendOpenAI,
	}, nil
}

// NewOllamaModel points the chat backend at a local Ollama server
func NewOllamaModel(cfg model.NeuralConfig) (*OpenAIModel, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b)")
	}

	m, err := NewOpenAIModel(cfg)
	if err != nil {
		return nil, err
	}
	m.name = model.BackendOllama
	return m, nil
}

// Name returns the backend name
func (m *OpenAIModel) Name() string {
	return m.name
}

type chatEntities struct {
	Entities []chatEntity `json:"entities"`
}

type chatEntity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Predict asks the chat model for spans and locates them in the sentence
func (m *OpenAIModel) Predict(ctx context.Context, req PredictRequest) ([]Prediction, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	}

	resp, err := m.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", m.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", m.name)
	}

	return parseEntities(m.name, resp.Choices[0].Message.Content, req.Text)
}

// parseEntities decodes a chat model's JSON reply and locates each span in
// the sentence. Spans that cannot be found get negative offsets.
func parseEntities(backend, content, text string) ([]Prediction, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```json"), "```")

	var parsed chatEntities
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed JSON output: %w", backend, err)
	}

	preds := make([]Prediction, 0, len(parsed.Entities))
	used := make(map[[2]int]bool)
	for _, e := range parsed.Entities {
		start, end := locate(text, e.Text, used)
		preds = append(preds, Prediction{
			Label: e.Label,
			Start: start,
			End:   end,
			Text:  e.Text,
			Score: e.Score,
		})
	}
	return preds, nil
}

// BuildPrompt renders the tagging instructions for one sentence
func BuildPrompt(req PredictRequest) string {
	var b strings.Builder
	b.WriteString("Find spans in the sentence that belong to these categories:\n")
	for _, l := range req.Labels {
		fmt.Fprintf(&b, "- %s: %s\n", l.Name, l.Description)
	}
	fmt.Fprintf(&b, "\nOnly report spans you are at least %.2f confident about. ", req.Threshold)
	b.WriteString("Copy each span exactly as it appears in the sentence.\n")
	b.WriteString(`Answer as {"entities":[{"label":"CATEGORY","text":"span","score":0.0}]}.`)
	fmt.Fprintf(&b, "\n\nSentence: %s", req.Text)
	return b.String()
}

// locate finds the first unused occurrence of span in text, ignoring case
func locate(text, span string, used map[[2]int]bool) (int, int) {
	span = strings.TrimSpace(span)
	if span == "" {
		return -1, -1
	}

	lower := strings.ToLower(text)
	needle := strings.ToLower(span)
	// Case folding can change byte lengths; only trust offsets when it did not
	if len(lower) != len(text) {
		lower, needle = text, span
	}

	from := 0
	for {
		i := strings.Index(lower[from:], needle)
		if i < 0 {
			return -1, -1
		}
		key := [2]int{from + i, from + i + len(needle)}
		if !used[key] {
			used[key] = true
			return key[0], key[1]
		}
		from = key[0] + 1
	}
}
