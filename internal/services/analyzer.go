package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/utils"
)

func marshalAnalysis(result *AnalysisResult) (datatypes.JSON, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// AnalysisResult is what the external analyzer returns for report or evidence
// text. The shape is stored verbatim in ai_analysis_results.
type AnalysisResult struct {
	EmotionalContext  map[string]any `json:"emotional_context,omitempty"`
	StructuredData    map[string]any `json:"structured_data,omitempty"`
	SuggestedServices []string       `json:"suggested_services,omitempty"`
	Recommendations   []string       `json:"recommendations,omitempty"`
	Confidence        float64        `json:"confidence"`
	ProcessingTime    int64          `json:"processing_time_ms"`
}

// AIAnalyzer is the out-of-process text analyzer. Callers treat it as
// best-effort: analysis failure never fails the operation that requested it.
type AIAnalyzer interface {
	Analyze(ctx context.Context, text, language string) (*AnalysisResult, error)
}

type httpAnalyzer struct {
	log        *logger.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAIAnalyzer reads AI_ANALYZER_URL; when unset the returned analyzer is a
// no-op so the rest of the system runs without the external service.
func NewAIAnalyzer(log *logger.Logger) AIAnalyzer {
	serviceLog := log.With("service", "AIAnalyzer")
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("AI_ANALYZER_URL")), "/")
	if baseURL == "" {
		serviceLog.Warn("AI_ANALYZER_URL not set, AI analysis disabled")
		return &noopAnalyzer{}
	}
	timeoutSeconds := utils.GetEnvAsInt("AI_ANALYZER_TIMEOUT_SECONDS", 60, serviceLog)
	return &httpAnalyzer{
		log:        serviceLog,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(os.Getenv("AI_ANALYZER_API_KEY")),
	}
}

func (a *httpAnalyzer) Analyze(ctx context.Context, text, language string) (*AnalysisResult, error) {
	payload := map[string]string{"text": text, "language": language}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	started := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analyzer response read failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var result AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("analyzer decode failed: %w", err)
	}
	if result.ProcessingTime == 0 {
		result.ProcessingTime = time.Since(started).Milliseconds()
	}
	return &result, nil
}

type noopAnalyzer struct{}

func (a *noopAnalyzer) Analyze(ctx context.Context, text, language string) (*AnalysisResult, error) {
	return nil, fmt.Errorf("ai analyzer not configured")
}
