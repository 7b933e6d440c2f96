// internal/providers/gemini/provider.go
// Package gemini implements providers.Generator against the Gemini
// generateContent REST API using server-sent events for streaming.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chemalabs/chema/internal/appconfig"
	"github.com/chemalabs/chema/internal/logging"
	"github.com/chemalabs/chema/internal/providers"
)

// Provider streams generations from the Gemini API.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	debug   bool
}

// New constructs a Provider configured with the application's credentials
// and request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		debug:   cfg.Debug,
	}
}

type requestPart struct {
	Text       string       `json:"text,omitempty"`
	InlineData *requestBlob `json:"inlineData,omitempty"`
}

type requestBlob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type requestContent struct {
	Role  string        `json:"role,omitempty"`
	Parts []requestPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *requestContent  `json:"systemInstruction,omitempty"`
	Contents          []requestContent `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// streamChunk is one decoded SSE event from streamGenerateContent.
type streamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// apiError is the JSON error envelope returned on non-200 responses.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

// Stream posts a streaming generation request and invokes callbacks.OnChunk
// for every received event. Throttling surfaces as *providers.RateLimitError.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	payload := generateRequest{
		Contents: []requestContent{{Role: "user", Parts: convertParts(req.Parts)}},
		GenerationConfig: generationConfig{
			Temperature:     req.Generation.Temperature,
			TopP:            req.Generation.TopP,
			TopK:            req.Generation.TopK,
			MaxOutputTokens: req.Generation.MaxOutputTokens,
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &requestContent{Parts: []requestPart{{Text: req.System}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding stream request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, req.Model)
	if p.debug {
		logging.LogRequest("CHEMA->SVC", "gemini", req.Model, body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("decoding stream event: %w", err)
		}
		if p.debug {
			logging.LogRequest("SVC->CHEMA", "gemini", req.Model, []byte(data))
		}

		if callbacks.OnChunk != nil {
			if err := callbacks.OnChunk(convertChunk(chunk)); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func convertParts(parts []providers.Part) []requestPart {
	out := make([]requestPart, len(parts))
	for i, part := range parts {
		if part.InlineData != nil {
			out[i] = requestPart{InlineData: &requestBlob{
				MIMEType: part.InlineData.MIMEType,
				Data:     part.InlineData.Data, // encoding/json base64-encodes []byte
			}}
			continue
		}
		out[i] = requestPart{Text: part.Text}
	}
	return out
}

func convertChunk(chunk streamChunk) providers.StreamChunk {
	out := providers.StreamChunk{BlockReason: chunk.PromptFeedback.BlockReason}
	if len(chunk.Candidates) == 0 {
		return out
	}
	cand := chunk.Candidates[0]
	out.FinishReason = cand.FinishReason
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}
	out.Text = text.String()
	return out
}

// decodeError turns a non-200 response into a typed error. Throttling
// (HTTP 429 or RESOURCE_EXHAUSTED) becomes a *providers.RateLimitError
// carrying the service-suggested retry delay when one is present.
func decodeError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return fmt.Errorf("gemini: %s (unreadable body: %v)", resp.Status, readErr)
	}

	var decoded apiError
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Error.Message == "" {
		if resp.StatusCode == http.StatusTooManyRequests {
			return &providers.RateLimitError{Message: resp.Status}
		}
		return fmt.Errorf("gemini: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if resp.StatusCode == http.StatusTooManyRequests || decoded.Error.Status == "RESOURCE_EXHAUSTED" {
		rle := &providers.RateLimitError{Message: decoded.Error.Message}
		for _, d := range decoded.Error.Details {
			if !strings.HasSuffix(d.Type, "RetryInfo") || d.RetryDelay == "" {
				continue
			}
			if delay, err := time.ParseDuration(d.RetryDelay); err == nil {
				rle.RetryAfter = delay
			}
		}
		return rle
	}

	return fmt.Errorf("gemini: %s: %s", decoded.Error.Status, decoded.Error.Message)
}
