package summarize

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

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/store"
)

// YandexGPT calls the Yandex foundation-models completion API.
type YandexGPT struct {
	cfg    config.SummaryConfig
	client *http.Client
}

// NewYandexGPT creates the client from config.
func NewYandexGPT(cfg config.SummaryConfig) *YandexGPT {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &YandexGPT{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	ModelURI          string              `json:"modelUri"`
	CompletionOptions completionOptions   `json:"completionOptions"`
	Messages          []completionMessage `json:"messages"`
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type completionMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionResponse struct {
	Result struct {
		Alternatives []struct {
			Message completionMessage `json:"message"`
		} `json:"alternatives"`
		Usage struct {
			InputTextTokens  string `json:"inputTextTokens"`
			CompletionTokens string `json:"completionTokens"`
		} `json:"usage"`
	} `json:"result"`
}

// Summarize sends the prompt and serialized messages to the model and returns
// the generated text with token usage.
func (y *YandexGPT) Summarize(ctx context.Context, prompt string, msgs []store.Message) (string, Usage, error) {
	payload := completionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s", y.cfg.FolderID, y.cfg.Model),
		CompletionOptions: completionOptions{
			Temperature: y.cfg.Temperature,
			MaxTokens:   y.cfg.MaxTokens,
		},
		Messages: []completionMessage{
			{Role: "system", Text: prompt},
			{Role: "user", Text: serializeMessages(msgs)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", Usage{}, fmt.Errorf("summarize: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, fmt.Errorf("summarize: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+y.cfg.APIKey)

	resp, err := y.client.Do(req)
	if err != nil {
		return "", Usage{}, fmt.Errorf("summarize: call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("summarize: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", Usage{}, fmt.Errorf("summarize: provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", Usage{}, fmt.Errorf("summarize: decode response: %w", err)
	}
	if len(parsed.Result.Alternatives) == 0 {
		return "", Usage{}, fmt.Errorf("summarize: provider returned no alternatives")
	}

	usage := Usage{
		InputTokens:  atoiLoose(parsed.Result.Usage.InputTextTokens),
		OutputTokens: atoiLoose(parsed.Result.Usage.CompletionTokens),
	}
	return parsed.Result.Alternatives[0].Message.Text, usage, nil
}

// serializeMessages flattens the window into one JSON-lines block the model
// can attribute by sender and time.
func serializeMessages(msgs []store.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		line, _ := json.Marshal(map[string]string{
			"sender":    m.Sender,
			"timestamp": m.Timestamp.Format(time.RFC3339),
			"text":      m.Text,
		})
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Token counters arrive as decimal strings; treat anything unparseable as 0.
func atoiLoose(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
