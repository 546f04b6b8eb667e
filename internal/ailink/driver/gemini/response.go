package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/picolens/picolens/internal/ailink/driver"
)

type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type errorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// toDriverResponse reads candidates[0].content.parts[0].text.
func toDriverResponse(resp *generateContentResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", driver.ErrInvalidResponse)
	}
	first := resp.Candidates[0]
	if first.Content == nil || len(first.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: candidate has no content parts", driver.ErrInvalidResponse)
	}
	text := first.Content.Parts[0].Text
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion text", driver.ErrInvalidResponse)
	}

	response := &driver.Response{
		Text:         text,
		FinishReason: first.FinishReason,
	}
	if resp.UsageMetadata != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return response, nil
}

// errorMessage extracts error.message from a provider error body.
func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == nil {
		return ""
	}
	return strings.TrimSpace(parsed.Error.Message)
}
