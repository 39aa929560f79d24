package decisionflow

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const defaultPredictionCacheSize = 1000

// HTTPPredictorOptions configures an HTTPPredictor.
type HTTPPredictorOptions struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	CacheSize  int
}

// HTTPPredictor calls an alignment-prediction API over HTTP. Identical
// requests are served from a bounded in-memory cache, since predictions for
// the same scenario and options are deterministic on the provider side.
type HTTPPredictor struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	cacheSize int

	mutex      sync.Mutex
	cache      map[string]Prediction
	cacheOrder []string
}

// NewHTTPPredictor creates a predictor client. BaseURL is required.
func NewHTTPPredictor(opts HTTPPredictorOptions) (*HTTPPredictor, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultPredictionCacheSize
	}
	return &HTTPPredictor{
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		client:    opts.HTTPClient,
		cacheSize: opts.CacheSize,
		cache:     map[string]Prediction{},
	}, nil
}

type predictRequest struct {
	Context string   `json:"context"`
	Options []string `json:"options"`
}

type predictResponse struct {
	PredictedChoice string  `json:"predicted_choice"`
	Confidence      float64 `json:"confidence"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, scenario string, options []string) (Prediction, error) {
	if len(options) == 0 {
		return Prediction{}, fmt.Errorf("at least one option must be provided")
	}

	request := predictRequest{Context: scenario, Options: options}
	body, err := json.Marshal(request)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	cacheKey := cacheKeyFor(body)
	if cached, ok := p.getCached(cacheKey); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/predict/alignment", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return Prediction{}, fmt.Errorf("prediction API rejected credentials")
		case http.StatusTooManyRequests:
			return Prediction{}, fmt.Errorf("prediction API rate limit exceeded")
		case http.StatusUnprocessableEntity:
			return Prediction{}, fmt.Errorf("prediction API rejected request: %s", string(data))
		default:
			return Prediction{}, fmt.Errorf("prediction API error: %d %s", resp.StatusCode, string(data))
		}
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode prediction response: %w", err)
	}
	if parsed.PredictedChoice == "" {
		return Prediction{}, fmt.Errorf("prediction response contained no choice")
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return Prediction{}, fmt.Errorf("prediction confidence %v out of range [0,1]", parsed.Confidence)
	}

	prediction := Prediction{Option: parsed.PredictedChoice, Confidence: parsed.Confidence}
	p.setCached(cacheKey, prediction)
	return prediction, nil
}

func cacheKeyFor(requestBody []byte) string {
	sum := sha256.Sum256(requestBody)
	return hex.EncodeToString(sum[:])
}

func (p *HTTPPredictor) getCached(key string) (Prediction, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	prediction, ok := p.cache[key]
	return prediction, ok
}

func (p *HTTPPredictor) setCached(key string, prediction Prediction) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, exists := p.cache[key]; exists {
		return
	}
	// FIFO eviction once the cache is full
	if len(p.cacheOrder) >= p.cacheSize {
		oldest := p.cacheOrder[0]
		p.cacheOrder = p.cacheOrder[1:]
		delete(p.cache, oldest)
	}
	p.cache[key] = prediction
	p.cacheOrder = append(p.cacheOrder, key)
}

// ClearCache drops all cached predictions.
func (p *HTTPPredictor) ClearCache() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.cache = map[string]Prediction{}
	p.cacheOrder = nil
}
