package foodai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1-mini"
	defaultTimeout = 60 * time.Second
)

// Estimate is a nutrition estimate for a single meal.
type Estimate struct {
	Item       string  `json:"item"`
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	Confidence float64 `json:"confidence"`
}

// Client estimates meal nutrition via a hosted generative model. With no API
// key configured every call returns a deterministic placeholder estimate
// instead of reaching out — the capture flow must keep working offline.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client with the given API key. An empty key enables
// fallback-only mode.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Configured reports whether a model key is available.
func (c *Client) Configured() bool { return c.apiKey != "" }

// AnalyzeText estimates nutrition for a free-text meal description.
func (c *Client) AnalyzeText(ctx context.Context, input string) (Estimate, error) {
	if !c.Configured() {
		return Estimate{Item: input, Calories: 500, Protein: 20, Confidence: 0.25}, nil
	}

	req := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{
				Role:    "system",
				Content: "You estimate food nutrition quickly. Return strict JSON only with keys: item, calories, protein, confidence. confidence must be 0-1.",
			},
			{
				Role:    "user",
				Content: "Estimate this food entry: " + input,
			},
		},
	}

	parsed, err := c.analyze(ctx, req)
	if err != nil {
		return Estimate{}, err
	}
	if parsed.Item == "" {
		parsed.Item = input
	}
	return parsed, nil
}

// AnalyzeImage estimates nutrition from a base64-encoded meal photo.
// The data-URI prefix, the explicit mediaType, and magic-byte sniffing are
// consulted in that order.
func (c *Client) AnalyzeImage(ctx context.Context, base64Image, mediaType string) (Estimate, error) {
	data, detected := SplitDataURI(base64Image)
	if mediaType == "" {
		mediaType = detected
	}
	if mediaType == "" {
		mediaType = DetectMediaType(data)
	}

	if !c.Configured() {
		return Estimate{Item: "Unknown meal", Calories: 600, Protein: 25, Confidence: 0.2}, nil
	}

	req := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{
				Role:    "system",
				Content: "Analyze food image and return JSON only: {item, calories, protein, confidence}.",
			},
			{
				Role: "user",
				Content: []inputContent{
					{Type: "input_text", Text: "Estimate calories and protein from this meal image."},
					{Type: "input_image", ImageURL: fmt.Sprintf("data:%s;base64,%s", mediaType, data)},
				},
			},
		},
	}

	parsed, err := c.analyze(ctx, req)
	if err != nil {
		return Estimate{}, err
	}
	if parsed.Item == "" {
		parsed.Item = "Unknown meal"
	}
	return parsed, nil
}

func (c *Client) analyze(ctx context.Context, req responsesRequest) (Estimate, error) {
	text, err := c.complete(ctx, req)
	if err != nil {
		return Estimate{}, err
	}

	obj, err := extractJSONObject(text)
	if err != nil {
		return Estimate{}, err
	}

	var parsed struct {
		Item       string   `json:"item"`
		Calories   *float64 `json:"calories"`
		Protein    *float64 `json:"protein"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return Estimate{}, fmt.Errorf("parsing model output: %w", err)
	}

	est := Estimate{Item: strings.TrimSpace(parsed.Item), Confidence: 0.5}
	if parsed.Calories != nil {
		est.Calories = *parsed.Calories
	}
	if parsed.Protein != nil {
		est.Protein = *parsed.Protein
	}
	if parsed.Confidence != nil {
		est.Confidence = *parsed.Confidence
	}
	est.Confidence = clamp01(est.Confidence)
	return est, nil
}

// complete sends the request and collects the model's textual output.
func (c *Client) complete(ctx context.Context, req responsesRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model request failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var payload responsesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return payload.text(), nil
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
}

// inputMessage content is either a plain string or a list of inputContent
// parts, matching the responses API wire format.
type inputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type inputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesPayload struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (p responsesPayload) text() string {
	if p.OutputText != "" {
		return p.OutputText
	}
	var parts []string
	for _, out := range p.Output {
		for _, content := range out.Content {
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, " ")
}

// extractJSONObject slices from the first "{" to the last "}" of the model's
// textual output. Models wrap JSON in prose often enough that strict decoding
// of the whole text is not an option.
func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON found in model response")
	}
	return text[start : end+1], nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
