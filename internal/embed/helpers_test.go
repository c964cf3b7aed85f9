package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// vectorMagnitude computes the magnitude of a vector
func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// cosineSimilarity computes cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, magA, magB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(magA) * math.Sqrt(magB))
}

// fakeVector encodes the text length in the first component so tests can
// check that results come back in input order.
func fakeVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	vec[0] = float32(len(text))
	for i := 1; i < dims; i++ {
		vec[i] = 1
	}
	return vec
}

// fakeOllama is an httptest stand-in for the Ollama API.
type fakeOllama struct {
	dims      int
	models    []string
	failFirst int32         // respond 500 to this many embed calls first
	status    int           // fixed non-200 status for embed calls
	delay     time.Duration // sleep before answering embed calls

	embedCalls atomic.Int32
	mu         sync.Mutex
	batchSizes []int
}

func (f *fakeOllama) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, _ *http.Request) {
		resp := ollamaTagsResponse{}
		for _, m := range f.models {
			resp.Models = append(resp.Models, ollamaModelInfo{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("POST /api/embed", func(w http.ResponseWriter, r *http.Request) {
		n := f.embedCalls.Add(1)
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		if n <= f.failFirst {
			http.Error(w, "model loading", http.StatusInternalServerError)
			return
		}
		if f.status != 0 {
			http.Error(w, `{"error":"bad request"}`, f.status)
			return
		}

		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.batchSizes = append(f.batchSizes, len(req.Input))
		f.mu.Unlock()

		resp := ollamaEmbedResponse{Model: req.Model}
		for _, text := range req.Input {
			resp.Embeddings = append(resp.Embeddings, fakeVector(text, f.dims))
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// fakeOpenAI is an httptest stand-in for an OpenAI-compatible API. It
// returns data items in reverse order, as the API is allowed to.
type fakeOpenAI struct {
	dims    int
	apiKey  string
	lastReq atomic.Pointer[openAIEmbedRequest]
}

func (f *fakeOpenAI) start(t *testing.T) *httptest.Server {
	t.Helper()
	authorized := func(r *http.Request) bool {
		return f.apiKey == "" || r.Header.Get("Authorization") == "Bearer "+f.apiKey
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("POST /v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
			return
		}
		var req openAIEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastReq.Store(&req)

		dims := f.dims
		if req.Dimensions > 0 {
			dims = req.Dimensions
		}
		resp := openAIEmbedResponse{Model: req.Model}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, openAIEmbedding{Index: i, Embedding: fakeVector(req.Input[i], dims)})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// countingEmbedder records how many texts reach the wrapped embedder.
type countingEmbedder struct {
	*StaticEmbedder
	texts atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.texts.Add(1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts.Add(int32(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}
