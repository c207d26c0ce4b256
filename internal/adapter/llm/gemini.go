package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// GeminiFallbackReply is returned when a successful response has no text part.
const GeminiFallbackReply = "No response from Gemini."

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(baseURL, apiKey, model string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateContentRequest is the generateContent request body.
type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

// Content is one conversational turn in Gemini's format.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a piece of a content turn.
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerateContentResponse is the generateContent response body.
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// GeminiErrorResponse represents an API error response.
type GeminiErrorResponse struct {
	Error *GeminiAPIError `json:"error"`
}

// GeminiAPIError represents the error details.
type GeminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Name implements Gateway.
func (c *GeminiClient) Name() string {
	return "Gemini"
}

// Complete sends the prompt as a single user turn.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	})
	if err != nil {
		return "", domain.NewCompletionError("failed to marshal request", domain.CompletionDetail{}, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", domain.NewCompletionError("failed to create request", domain.CompletionDetail{}, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// The URL carries the API key; report the cause only.
		cause := err
		if ue, ok := err.(*url.Error); ok {
			cause = ue.Err
		}
		return "", domain.NewCompletionError(cause.Error(), domain.CompletionDetail{Transport: cause.Error()}, nil)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewCompletionError("failed to read response", domain.CompletionDetail{StatusCode: resp.StatusCode, Transport: err.Error()}, nil)
	}

	if resp.StatusCode != http.StatusOK {
		detail := domain.CompletionDetail{StatusCode: resp.StatusCode, Body: string(respBody)}
		msg := fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		var errResp GeminiErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			detail.Body = errResp
			msg = fmt.Sprintf("%s: %s", msg, errResp.Error.Message)
		}
		return "", domain.NewCompletionError(msg, detail, nil)
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", domain.NewCompletionError("failed to unmarshal response", domain.CompletionDetail{StatusCode: resp.StatusCode, Body: string(respBody)}, err)
	}

	return result.FirstText(), nil
}

// FirstText returns the first candidate's first text part, or
// GeminiFallbackReply when the response does not have one.
func (r *GenerateContentResponse) FirstText() string {
	if len(r.Candidates) == 0 {
		return GeminiFallbackReply
	}
	content := r.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == "" {
		return GeminiFallbackReply
	}
	return content.Parts[0].Text
}
