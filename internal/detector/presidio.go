package detector

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

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

// PresidioClient calls a Presidio analyzer's REST API.
type PresidioClient struct {
	baseURL string
	logger  *utils.Logger
	client  *http.Client
}

type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Entities       []string `json:"entities,omitempty"`
	ScoreThreshold float64  `json:"score_threshold"`
}

type analyzerResult struct {
	EntityType string   `json:"entity_type"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Score      *float64 `json:"score"`
	Metadata   struct {
		RecognizerName string `json:"recognizer_name"`
	} `json:"recognition_metadata"`
}

func NewPresidioClient(baseURL string, timeout time.Duration, logger *utils.Logger) *PresidioClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PresidioClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *PresidioClient) Name() string {
	return BackendPresidio
}

// Analyze posts the text to /analyze. Presidio reports offsets in code
// points; they are converted to byte offsets before returning.
func (c *PresidioClient) Analyze(ctx context.Context, req Request) ([]models.Detection, error) {
	entities := make([]string, 0, len(req.EntityTypes))
	for _, t := range req.EntityTypes {
		entities = append(entities, string(t))
	}

	jsonData, err := json.Marshal(analyzeRequest{
		Text:           req.Text,
		Language:       req.Language,
		Entities:       entities,
		ScoreThreshold: req.ScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var results []analyzerResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, c.unavailable(fmt.Errorf("failed to unmarshal response: %w", err))
	}

	// Presidio does not settle conflicts between its recognizers (a URL
	// inside an email address), so results are grouped by recognizer and
	// merged like separate backends.
	index := newCodePointIndex(req.Text)
	groupOf := make(map[string]int)
	var groups [][]models.Detection
	for _, r := range results {
		d := models.Detection{
			EntityType: models.ParseEntityType(r.EntityType),
			Start:      index.byteOffset(r.Start),
			End:        index.byteOffset(r.End),
			Score:      models.Unscored,
		}
		if r.Score != nil {
			d.Score = *r.Score
		}
		g, ok := groupOf[r.Metadata.RecognizerName]
		if !ok {
			g = len(groups)
			groupOf[r.Metadata.RecognizerName] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], d)
	}
	detections := Merge(groups)

	c.logger.Debug("Presidio analysis complete", "results", len(results), "detections", len(detections), "text_length", len(req.Text))
	return detections, nil
}

// Health probes the analyzer's /health endpoint.
func (c *PresidioClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	_, err = c.do(req)
	return err
}

func (c *PresidioClient) SupportedEntities(ctx context.Context, language string) ([]models.EntityType, error) {
	u := c.baseURL + "/supportedentities?language=" + url.QueryEscape(language)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, c.unavailable(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	types := make([]models.EntityType, 0, len(names))
	for _, n := range names {
		types = append(types, models.ParseEntityType(n))
	}
	return types, nil
}

func (c *PresidioClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.unavailable(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Presidio API error", "status", resp.StatusCode, "path", req.URL.Path)
		return nil, c.unavailable(fmt.Errorf("analyzer returned status %d", resp.StatusCode))
	}
	return body, nil
}

func (c *PresidioClient) unavailable(err error) error {
	return &UnavailableError{Backend: BackendPresidio, Err: err}
}

// codePointIndex maps code-point offsets to byte offsets in one text.
type codePointIndex struct {
	starts []int
	length int
}

func newCodePointIndex(text string) codePointIndex {
	starts := make([]int, 0, len(text)+1)
	for i := range text {
		starts = append(starts, i)
	}
	return codePointIndex{starts: starts, length: len(text)}
}

// byteOffset converts a code-point offset. Offsets past the end map past the
// end of the text as well, so bounds validation still rejects them.
func (x codePointIndex) byteOffset(cp int) int {
	switch {
	case cp < 0:
		return cp
	case cp < len(x.starts):
		return x.starts[cp]
	default:
		return x.length + (cp - len(x.starts))
	}
}
