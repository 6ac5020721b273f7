// Package classify wraps the remote vision classifier behind a single
// request/response contract. It never touches storage and never retries;
// recovery is the caller's decision.
package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KeyProvider is the secret-store collaborator. Absence of a key is an auth
// failure at call time, never a crash ahead of time.
type KeyProvider interface {
	APIKey() (string, bool)
}

// StaticKey is a KeyProvider backed by a fixed string.
type StaticKey string

func (k StaticKey) APIKey() (string, bool) { return string(k), k != "" }

// RoleInfo and CategoryInfo are the taxonomy slices sent with each request.
type RoleInfo struct {
	Name        string
	Description string
}

type CategoryInfo struct {
	Name        string
	Slug        string
	Description string
}

// Request is one classification call: a screenshot plus its focus context
// and the current taxonomy.
type Request struct {
	Image         []byte // PNG bytes
	AppName       string
	WindowTitle   string
	Roles         []RoleInfo
	Categories    []CategoryInfo
	KnownProjects []string
}

// Categorization is the classifier's structured verdict.
type Categorization struct {
	ProjectName       string   `json:"project_name"`
	ProjectRole       string   `json:"project_role"`
	WorkCategory      string   `json:"work_category"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	SuggestedPatterns []string `json:"suggested_patterns"`
	KeyInsights       []string `json:"key_insights,omitempty"`
	Summary           string   `json:"summary,omitempty"`
}

type Config struct {
	BaseURL           string
	Model             string
	MaxTokens         int
	KnownProjectLimit int
}

type Client struct {
	keys KeyProvider
	cfg  Config
	http *http.Client
}

func NewClient(keys KeyProvider, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1/messages"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.KnownProjectLimit <= 0 {
		cfg.KnownProjectLimit = 20
	}
	return &Client{
		keys: keys,
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify sends the screenshot and context to the remote model and parses
// the structured categorization out of its reply.
func (c *Client) Classify(ctx context.Context, req Request) (*Categorization, error) {
	prompt := buildClassifyPrompt(req, c.cfg.KnownProjectLimit)
	text, err := c.send(ctx, req.Image, prompt)
	if err != nil {
		return nil, err
	}
	return parseCategorization(text)
}

// Describe asks for a free-text description of the screenshot. It is a
// connectivity check only and is never used for categorization decisions.
func (c *Client) Describe(ctx context.Context, image []byte) (string, error) {
	return c.send(ctx, image, "Briefly describe what is visible in this screenshot in one or two sentences.")
}

func (c *Client) send(ctx context.Context, image []byte, prompt string) (string, error) {
	key, ok := c.keys.APIKey()
	if !ok {
		return "", ErrMissingAPIKey
	}

	content := []contentBlock{}
	if len(image) > 0 {
		content = append(content, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(image),
			},
		})
	}
	content = append(content, contentBlock{Type: "text", Text: prompt})

	body := apiRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []apiMessage{{Role: "user", Content: content}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-api-key", key)
	request.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(request)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedResponse, parsed.Error.Message)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content", ErrMalformedResponse)
}
