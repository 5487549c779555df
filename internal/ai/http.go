package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/burjnawas/sitecoord/internal/metrics"
)

const (
	summarizePrompt = "You are the site coordinator for a high-rise construction project. " +
		"Summarize the following site log messages into concise report insights: " +
		"manpower and machinery on site, activities and progress, and any reported problems. " +
		"Write in professional engineering Arabic."

	analyzePrompt = "Analyze this construction site photo briefly (max 2-3 sentences). " +
		"Focus on safety, progress, and main hazards."

	safetyTipPrompt = "You are a Site Safety Manager for a high-rise construction project. " +
		"Provide a single, short, impactful safety advice tip in Arabic for the site workers. " +
		"Focus on either: PPE, working at heights, electrical safety, or crane operations. " +
		"Start with an emoji. Keep it under 30 words."
)

// HTTPClient implements Client against an OpenAI-compatible chat
// completions endpoint (e.g. DashScope compatible mode).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	// limiter guards the external quota locally so a burst of photo
	// analyses does not trip the provider's limit.
	limiter *rate.Limiter
}

// NewHTTPClient creates an AI client. requestsPerMinute bounds outbound
// call rate; zero disables local limiting.
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration, requestsPerMinute int) *HTTPClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// Summarize condenses aggregate log text.
func (c *HTTPClient) Summarize(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, "summarize", []message{
		{Role: "system", Content: []content{{Type: "text", Text: summarizePrompt}}},
		{Role: "user", Content: []content{{Type: "text", Text: text}}},
	})
	return out, err
}

// AnalyzeImage describes a site photo.
func (c *HTTPClient) AnalyzeImage(ctx context.Context, image []byte, caption string) (string, error) {
	prompt := analyzePrompt
	if caption != "" {
		prompt += " User caption: " + caption
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	return c.complete(ctx, "analyze_image", []message{
		{Role: "user", Content: []content{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	})
}

// SafetyTip produces the morning safety broadcast text.
func (c *HTTPClient) SafetyTip(ctx context.Context) (string, error) {
	return c.complete(ctx, "safety_tip", []message{
		{Role: "user", Content: []content{{Type: "text", Text: safetyTipPrompt}}},
	})
}

type message struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) complete(ctx context.Context, op string, messages []message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: local limiter: %v", ErrRateLimited, err)
	}

	body, err := json.Marshal(completionRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.AICallsTotal.WithLabelValues(op, "unavailable").Inc()
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.AICallsTotal.WithLabelValues(op, "rate_limited").Inc()
		return "", fmt.Errorf("%w: status 429", ErrRateLimited)
	case resp.StatusCode >= 500:
		metrics.AICallsTotal.WithLabelValues(op, "unavailable").Inc()
		return "", fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		metrics.AICallsTotal.WithLabelValues(op, "error").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ai API error: status %d: %s", resp.StatusCode, errBody)
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.AICallsTotal.WithLabelValues(op, "error").Inc()
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		metrics.AICallsTotal.WithLabelValues(op, "error").Inc()
		return "", fmt.Errorf("ai API returned no choices")
	}

	metrics.AICallsTotal.WithLabelValues(op, "ok").Inc()
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
