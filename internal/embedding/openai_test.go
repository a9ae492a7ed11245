package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embeddingServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	if _, err := NewOpenAIEmbedder(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewOpenAIEmbedder(Config{APIKey: "k", Model: "custom-model"}); err == nil {
		t.Error("expected error for unknown model without dimensions")
	}
	e, err := NewOpenAIEmbedder(Config{APIKey: "k", Model: "custom-model", Dimensions: 8})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
	e, err = NewOpenAIEmbedder(Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 1536 {
		t.Errorf("default model dimensions = %d, want 1536", e.Dimensions())
	}
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		// Answer out of order to exercise index-based reassembly.
		fmt.Fprintf(w, `{"data":[{"embedding":[0.3,0.4],"index":1},{"embedding":[0.1,0.2],"index":0}]}`)
	})

	e, err := NewOpenAIEmbedder(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m", Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d embeddings", len(got))
	}
	if got[0][0] != 0.1 || got[1][0] != 0.3 {
		t.Errorf("results not reordered by index: %v", got)
	}
}

func TestOpenAIEmbedder_EmptyBatchSkipsRequest(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})
	e, err := NewOpenAIEmbedder(Config{APIKey: "k", BaseURL: srv.URL, Model: "m", Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d embeddings", len(got))
	}
}

func TestOpenAIEmbedder_ProviderError(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded","type":"rate_limit"}}`)
	})
	e, err := NewOpenAIEmbedder(Config{APIKey: "k", BaseURL: srv.URL, Model: "m", Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.EmbedBatch(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestOpenAIEmbedder_CountMismatch(t *testing.T) {
	srv := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2],"index":0}]}`)
	})
	e, err := NewOpenAIEmbedder(Config{APIKey: "k", BaseURL: srv.URL, Model: "m", Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}
