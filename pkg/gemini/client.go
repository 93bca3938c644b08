// Package gemini is a minimal client for the Gemini generateContent API,
// specialized for lab-report metric extraction. The document travels inline
// as base64; the response is expected to be a JSON object over the metric
// catalog, possibly wrapped in markdown fences.
package gemini

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

	apperrors "github.com/openphms/admin-api/pkg/errors"
)

// Extractor is what the extraction service depends on; tests substitute it.
type Extractor interface {
	ExtractReport(ctx context.Context, payload []byte, mimeType string) (*Extraction, error)
}

// Extraction is the parsed adapter response: a flat metric guess plus an
// optional report date. Values are unvalidated; the caller filters against
// the catalog before staging.
type Extraction struct {
	Metrics     map[string]float64
	ReportDate  *time.Time
	RawResponse string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// request/response shapes for the generateContent endpoint.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractReport sends the document and the controlled extraction prompt.
// Any transport failure, non-2xx status, or unparseable body is returned as
// an error; the caller maps it to the adapter-failed state.
func (c *Client) ExtractReport(ctx context.Context, payload []byte, mimeType string) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(payload),
				}},
				{Text: extractionPrompt},
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Adapter("gemini request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Adapter(fmt.Sprintf("gemini returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)), nil)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("gemini response is not valid JSON: %w", err)
	}
	if genResp.Error != nil {
		return nil, apperrors.Adapter(fmt.Sprintf("gemini error %d: %s", genResp.Error.Code, genResp.Error.Message), nil)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	text := genResp.Candidates[0].Content.Parts[0].Text
	return parseExtraction(text)
}

// parseExtraction tolerates markdown-fenced JSON and mixed value types; nulls
// and non-numeric values (other than the timestamp) are dropped.
func parseExtraction(text string) (*Extraction, error) {
	jsonText := stripFences(strings.TrimSpace(text))

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	ex := &Extraction{
		Metrics:     map[string]float64{},
		RawResponse: text,
	}
	for key, value := range raw {
		if value == nil {
			continue
		}
		if key == "timestamp" {
			if s, ok := value.(string); ok {
				if t, err := parseReportDate(s); err == nil {
					ex.ReportDate = &t
				}
			}
			continue
		}
		switch v := value.(type) {
		case float64:
			ex.Metrics[key] = v
		case string:
			var f float64
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
				ex.Metrics[key] = f
			}
		}
	}
	return ex, nil
}

func stripFences(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}

func parseReportDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
