package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// serverRequest is the wire shape sent to the local LLM server. The kernel
// targets an Ollama-compatible chat completion endpoint, matching the
// base-URL-plus-model-name configuration shape spec.md §4.4 describes.
type serverRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Options     options   `json:"options"`
	Format      string    `json:"format,omitempty"`
}

type options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

type serverResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// serverClient issues HTTP calls to the local LLM server. It is a thin
// wrapper, not a queueing layer — admission, tiering, caching, and budget
// live in Router.
type serverClient struct {
	baseURL string
	http    *http.Client
}

func newServerClient(baseURL string, timeout time.Duration) *serverClient {
	return &serverClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// dispatch performs one chat completion call against model and classifies
// any failure into the closed FailureClass set (spec.md §4.4).
func (c *serverClient) dispatch(ctx context.Context, model string, req *Request) (text string, usage Usage, fail FailureClass, httpStatus int, err error) {
	body, marshalErr := json.Marshal(serverRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
		Options: options{
			Temperature:   req.Temperature,
			TopP:          req.TopP,
			RepeatPenalty: req.RepeatPenalty,
			NumPredict:    req.MaxTokens,
		},
		Format: jsonFormatOrEmpty(req.JSONSchema),
	})
	if marshalErr != nil {
		return "", Usage{}, FailureUnhandledError, 0, marshalErr
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, FailureUnhandledError, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", Usage{}, FailureConnection, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", Usage{}, FailureModelNotFound, resp.StatusCode, fmt.Errorf("model not found: %s", model)
	}
	if resp.StatusCode >= 400 {
		return "", Usage{}, FailureHTTP, resp.StatusCode, fmt.Errorf("llm server returned status %d", resp.StatusCode)
	}

	var sr serverResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", Usage{}, FailureInvalidJSON, resp.StatusCode, err
	}

	if sr.Message.Content == "" {
		return "", Usage{}, FailureEmptyResponse, resp.StatusCode, errors.New("empty response from llm server")
	}

	return sr.Message.Content, Usage{PromptTokens: sr.PromptEvalCount, CompletionTokens: sr.EvalCount}, FailureNone, resp.StatusCode, nil
}

func jsonFormatOrEmpty(schema string) string {
	if schema == "" {
		return ""
	}
	return "json"
}
