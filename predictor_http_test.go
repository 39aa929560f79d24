package decisionflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newPredictorServer(t *testing.T, requests *atomic.Int64, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict/alignment", r.URL.Path)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPPredictorRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPPredictor(HTTPPredictorOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "base URL is required")
}

func TestHTTPPredictorPredict(t *testing.T) {
	ctx := context.Background()
	server := newPredictorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Context string   `json:"context"`
			Options []string `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.Equal(t, "Launch Q1 or Q2?", request.Context)
		require.Equal(t, []string{"Q1", "Q2"}, request.Options)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"predicted_choice": "Q1",
			"confidence":       0.82,
		})
	})

	predictor, err := NewHTTPPredictor(HTTPPredictorOptions{
		BaseURL: server.URL,
		APIKey:  "secret",
	})
	require.NoError(t, err)

	prediction, err := predictor.Predict(ctx, "Launch Q1 or Q2?", []string{"Q1", "Q2"})
	require.NoError(t, err)
	require.Equal(t, "Q1", prediction.Option)
	require.Equal(t, 0.82, prediction.Confidence)
}

func TestHTTPPredictorCaching(t *testing.T) {
	ctx := context.Background()
	var requests atomic.Int64
	server := newPredictorServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"predicted_choice": "Q1",
			"confidence":       0.82,
		})
	})

	predictor, err := NewHTTPPredictor(HTTPPredictorOptions{BaseURL: server.URL})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := predictor.Predict(ctx, "same scenario", []string{"Q1", "Q2"})
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), requests.Load())

	// A different request misses the cache
	_, err = predictor.Predict(ctx, "other scenario", []string{"Q1", "Q2"})
	require.NoError(t, err)
	require.Equal(t, int64(2), requests.Load())

	predictor.ClearCache()
	_, err = predictor.Predict(ctx, "same scenario", []string{"Q1", "Q2"})
	require.NoError(t, err)
	require.Equal(t, int64(3), requests.Load())
}

func TestHTTPPredictorCacheEviction(t *testing.T) {
	ctx := context.Background()
	var requests atomic.Int64
	server := newPredictorServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"predicted_choice": "Q1",
			"confidence":       0.5,
		})
	})

	predictor, err := NewHTTPPredictor(HTTPPredictorOptions{
		BaseURL:   server.URL,
		CacheSize: 1,
	})
	require.NoError(t, err)

	_, err = predictor.Predict(ctx, "first", []string{"Q1", "Q2"})
	require.NoError(t, err)
	_, err = predictor.Predict(ctx, "second", []string{"Q1", "Q2"})
	require.NoError(t, err)

	// "first" was evicted to make room for "second"
	_, err = predictor.Predict(ctx, "first", []string{"Q1", "Q2"})
	require.NoError(t, err)
	require.Equal(t, int64(3), requests.Load())
}

func TestHTTPPredictorErrorResponses(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name       string
		statusCode int
		body       string
		wantErr    string
	}{
		{"unauthorized", http.StatusUnauthorized, "", "rejected credentials"},
		{"rate limited", http.StatusTooManyRequests, "", "rate limit exceeded"},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":"bad options"}`, "rejected request"},
		{"server error", http.StatusInternalServerError, "oops", "prediction API error: 500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newPredictorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				w.Write([]byte(tc.body))
			})
			predictor, err := NewHTTPPredictor(HTTPPredictorOptions{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = predictor.Predict(ctx, "scenario", []string{"Q1", "Q2"})
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestHTTPPredictorInvalidResponses(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty choice", `{"predicted_choice":"","confidence":0.5}`, "no choice"},
		{"confidence too high", `{"predicted_choice":"Q1","confidence":1.2}`, "out of range"},
		{"confidence negative", `{"predicted_choice":"Q1","confidence":-0.1}`, "out of range"},
		{"malformed json", `not json`, "failed to decode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newPredictorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			predictor, err := NewHTTPPredictor(HTTPPredictorOptions{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = predictor.Predict(ctx, "scenario", []string{"Q1", "Q2"})
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestHTTPPredictorRequiresOptions(t *testing.T) {
	predictor, err := NewHTTPPredictor(HTTPPredictorOptions{BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = predictor.Predict(context.Background(), "scenario", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one option")
}
