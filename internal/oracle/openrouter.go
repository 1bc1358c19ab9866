package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bigdegenenergy/maker-framework/internal/cost"
	"github.com/bigdegenenergy/maker-framework/internal/types"
)

// Client samples an OpenRouter-compatible chat-completions endpoint. One
// Client is bound per step type: it owns that type's prompt template, system
// prompt and model.
type Client struct {
	Endpoint     string
	APIKey       string
	Model        string
	SystemPrompt string
	PromptTmpl   string
	Temperature  float64
	MaxTokens    int
	HTTPClient   *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Sample renders the prompt template against the state and performs one
// chat-completions call. Transport failures and non-200 statuses are
// returned as errors, never retried here.
func (c *Client) Sample(ctx context.Context, state types.State) (*Sample, error) {
	start := time.Now()

	messages := make([]chatMessage, 0, 2)
	if c.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: RenderPrompt(c.PromptTmpl, state)})

	payload := chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.Endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in API response")
	}

	// Cost resolution: header > usage > 0
	var apiCost float64
	if v, ok := cost.FromHeader(resp.Header.Get("x-openrouter-cost")); ok {
		apiCost = v
	} else if chatResp.Usage.PromptTokens > 0 {
		apiCost = cost.FromUsage(c.Model, cost.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		})
	}

	return &Sample{
		Text:      chatResp.Choices[0].Message.Content,
		Cost:      apiCost,
		TokensIn:  chatResp.Usage.PromptTokens,
		TokensOut: chatResp.Usage.CompletionTokens,
		Duration:  time.Since(start),
	}, nil
}

// RenderPrompt substitutes state placeholders into a prompt template.
// Recognized placeholders are {task_description}, {success_criteria},
// {current_step}, {total_steps}, {action_history}, {previous_action} and
// any task-level var by name. Unknown braced text (such as literal JSON in
// format instructions) is left untouched.
func RenderPrompt(tmpl string, state types.State) string {
	standard := [...][2]string{
		{"task_description", state.TaskDescription},
		{"success_criteria", state.SuccessCriteria},
		{"current_step", strconv.Itoa(state.Step)},
		{"total_steps", strconv.Itoa(state.TotalSteps)},
		{"action_history", renderHistory(state.History)},
		{"previous_action", renderPrevious(state)},
	}

	out := tmpl
	for _, kv := range standard {
		out = strings.ReplaceAll(out, "{"+kv[0]+"}", kv[1])
	}
	// Vars go last so references inside the substituted description or
	// criteria resolve too.
	for k, v := range state.Vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

func renderHistory(history []types.Action) string {
	if len(history) == 0 {
		return "(none)"
	}
	lines := make([]string, len(history))
	for i, a := range history {
		lines[i] = fmt.Sprintf("%d. %s", i+1, a.String())
	}
	return strings.Join(lines, "\n")
}

func renderPrevious(state types.State) string {
	last, ok := state.LastAction()
	if !ok {
		return "(none)"
	}
	return last.String()
}
