package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/experia/internal/model"
)

// GLiNERModel calls a GLiNER inference sidecar over HTTP
type GLiNERModel struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type glinerRequest struct {
	Model             string            `json:"model,omitempty"`
	Text              string            `json:"text"`
	Labels            []string          `json:"labels"`
	LabelDescriptions map[string]string `json:"label_descriptions,omitempty"`
	Threshold         float64           `json:"threshold"`
}

type glinerResponse struct {
	Entities []glinerEntity `json:"entities"`
}

type glinerEntity struct {
	Label string  `json:"label"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type glinerError struct {
	Detail string `json:"detail"`
}

// NewGLiNERModel creates a client for the sidecar at cfg.BaseURL
func NewGLiNERModel(cfg model.NeuralConfig) (*GLiNERModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8001"
	}

	return &GLiNERModel{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      cfg.Model,
		httpClient: newHTTPClient(cfg),
	}, nil
}

// Name returns the backend name
func (m *GLiNERModel) Name() string {
	return "gliner"
}

// IsAvailable checks the sidecar health endpoint
func (m *GLiNERModel) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, m.baseURL)
	}
	return nil
}

// Predict sends one sentence to the sidecar. GLiNER reports character
// offsets; they are converted to byte offsets here.
func (m *GLiNERModel) Predict(ctx context.Context, req PredictRequest) ([]Prediction, error) {
	apiReq := glinerRequest{
		Model:             m.model,
		Text:              req.Text,
		Labels:            labelNames(req.Labels),
		LabelDescriptions: make(map[string]string, len(req.Labels)),
		Threshold:         req.Threshold,
	}
	for _, l := range req.Labels {
		apiReq.LabelDescriptions[string(l.Name)] = l.Description
	}

	resp, err := m.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("gliner: %w", err)
	}

	offsets := runeOffsets(req.Text)
	preds := make([]Prediction, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		start, end := -1, -1
		if e.Start >= 0 && e.Start < len(offsets) {
			start = offsets[e.Start]
		}
		if e.End >= 0 && e.End < len(offsets) {
			end = offsets[e.End]
		}
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

// makeRequest posts to the /predict endpoint
func (m *GLiNERModel) makeRequest(ctx context.Context, apiReq glinerRequest) (*glinerResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr glinerError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Detail)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp glinerResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

// runeOffsets maps character index i to its byte offset; the final entry is
// len(text) so an end offset at the last character resolves.
func runeOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
