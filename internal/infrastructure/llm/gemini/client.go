package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkorchagin/smartdoc/internal/core/domain"
	"github.com/mkorchagin/smartdoc/internal/infrastructure/resilience"
)

// Client talks to the Gemini generateContent REST API. The API key is an
// explicit constructor argument, never ambient process state.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

func New(baseURL, model, apiKey string, rps float64, exec *resilience.Executor) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		exec:       exec,
	}
}

// Classifier implements the classification port against a Gemini model.
// It owns the taxonomy it offers the model; the caller sanitizes the
// returned label before using it as a container name.
type Classifier struct {
	client            *Client
	labels            []string
	allowUnrecognized bool
}

func NewClassifier(client *Client, labels []string, allowUnrecognized bool) *Classifier {
	return &Classifier{
		client:            client,
		labels:            labels,
		allowUnrecognized: allowUnrecognized,
	}
}

func (c *Classifier) Classify(ctx context.Context, excerpt string) (string, error) {
	prompt := buildClassificationPrompt(c.labels, c.allowUnrecognized, excerpt)

	var label string
	err := c.client.exec.Do(ctx, "gemini_classify", func(callCtx context.Context) error {
		if err := c.client.limiter.Wait(callCtx); err != nil {
			return err
		}
		raw, err := c.client.generateContent(callCtx, prompt)
		if err != nil {
			return err
		}
		label = strings.TrimSpace(raw)
		return nil
	}, classifyGeminiError)
	if err != nil {
		return "", domain.WrapError(domain.ErrClassifier, "classify document", err)
	}

	if label == "" {
		return "", domain.WrapError(domain.ErrClassifier, "classify document", errors.New("empty model response"))
	}
	return label, nil
}

func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	request := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     0,
			MaxOutputTokens: 16,
		},
	}

	var response generateContentResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	if err := c.postJSON(ctx, path, request, &response, "generate"); err != nil {
		return "", err
	}
	return response.firstText(), nil
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r *generateContentResponse) firstText() string {
	var b strings.Builder
	if len(r.Candidates) == 0 {
		return ""
	}
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
