package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-rag-be/internal/config"
	"recipe-rag-be/pkg/upstream"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func defaultConfig(url string) config.RetrievalConfig {
	return config.RetrievalConfig{
		URL:            url,
		TimeoutSeconds: 5,
		TopK:           5,
		UseRerank:      true,
		RerankMode:     "cross",
	}
}

func TestBuildRequestPrecedence(t *testing.T) {
	tests := []struct {
		name           string
		cfg            config.RetrievalConfig
		opts           Options
		wantK          int
		wantUseRerank  bool
		wantMode       *string
		wantRerankTopK int
	}{
		{
			name:           "all defaults",
			cfg:            defaultConfig("http://x"),
			opts:           Options{},
			wantK:          5,
			wantUseRerank:  true,
			wantMode:       strPtr("cross"),
			wantRerankTopK: 5, // falls back to effective top_k
		},
		{
			name:           "explicit argument beats config",
			cfg:            defaultConfig("http://x"),
			opts:           Options{TopK: intPtr(3), RerankMode: strPtr("BI"), RerankTopK: intPtr(10)},
			wantK:          3,
			wantUseRerank:  true,
			wantMode:       strPtr("bi"),
			wantRerankTopK: 10,
		},
		{
			name: "configured rerank_top_k beats effective top_k",
			cfg: config.RetrievalConfig{
				URL: "http://x", TopK: 5, UseRerank: true, RerankMode: "cross", RerankTopK: 8,
			},
			opts:           Options{TopK: intPtr(3)},
			wantK:          3,
			wantUseRerank:  true,
			wantMode:       strPtr("cross"),
			wantRerankTopK: 8,
		},
		{
			name:          "rerank disabled omits rerank_top_k",
			cfg:           defaultConfig("http://x"),
			opts:          Options{UseRerank: boolPtr(false)},
			wantK:         5,
			wantUseRerank: false,
			wantMode:      strPtr("cross"),
		},
		{
			name: "mode absent from both sources stays null",
			cfg: config.RetrievalConfig{
				URL: "http://x", TopK: 5, UseRerank: false,
			},
			opts:          Options{},
			wantK:         5,
			wantUseRerank: false,
			wantMode:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.cfg, nopLogger{})
			got := c.buildRequest("q", tt.opts)

			assert.Equal(t, tt.wantK, got.K)
			assert.Equal(t, tt.wantUseRerank, got.UseRerank)
			if tt.wantMode == nil {
				assert.Nil(t, got.RerankMode)
			} else {
				require.NotNil(t, got.RerankMode)
				assert.Equal(t, *tt.wantMode, *got.RerankMode)
			}
			assert.Equal(t, tt.wantRerankTopK, got.RerankTopK)
		})
	}
}

func TestRetrieveUnconfigured(t *testing.T) {
	c := NewClient(config.RetrievalConfig{}, nopLogger{})
	_, err := c.Retrieve(context.Background(), "q", Options{})

	var configErr *upstream.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "RAG_API_URL", configErr.Setting)
}

func TestRetrieveBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "红烧肉做法", payload["query"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name": "红烧肉", "text": "五花肉切块", "combined_score": 0.91},
			{"name": "", "text": "  "},
			{"text": "冰糖上色", "score": 0.42}
		]`))
	}))
	defer srv.Close()

	c := NewClient(defaultConfig(srv.URL), nopLogger{})
	docs, err := c.Retrieve(context.Background(), "红烧肉做法", Options{})
	require.NoError(t, err)

	require.Len(t, docs, 2) // empty-content item dropped
	assert.Equal(t, "红烧肉", docs[0].Title)
	assert.Equal(t, "五花肉切块", docs[0].Content)
	require.NotNil(t, docs[0].Score)
	assert.Equal(t, 0.91, *docs[0].Score)
	assert.Equal(t, "冰糖上色", docs[1].Content)
}

func TestRetrieveWrappedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"text": "清蒸鲈鱼"}]}`))
	}))
	defer srv.Close()

	c := NewClient(defaultConfig(srv.URL), nopLogger{})
	docs, err := c.Retrieve(context.Background(), "q", Options{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "清蒸鲈鱼", docs[0].Content)
}

func TestRetrieveUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(defaultConfig(srv.URL), nopLogger{})
	_, err := c.Retrieve(context.Background(), "q", Options{})

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "index not ready")
}

func TestRetrieveTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(defaultConfig(srv.URL), nopLogger{})
	_, err := c.Retrieve(context.Background(), "q", Options{})

	var transportErr *upstream.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotNil(t, transportErr.Err)
}
