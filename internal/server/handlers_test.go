package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/formmind/formmind/internal/agent"
	"github.com/formmind/formmind/internal/config"
	"github.com/formmind/formmind/internal/embedding"
	"github.com/formmind/formmind/internal/extract"
	"github.com/formmind/formmind/internal/generation"
	"github.com/formmind/formmind/internal/models"
	"github.com/formmind/formmind/internal/pii"
	"github.com/formmind/formmind/internal/qa"
	"github.com/formmind/formmind/internal/retriever"
	"github.com/formmind/formmind/internal/storage"
	"github.com/formmind/formmind/internal/store"
	"github.com/formmind/formmind/internal/summarize"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	embedder := embedding.NewMockEmbedder(0)
	gen := &generation.MockGenerator{}
	st := store.NewStore(filepath.Join(dir, "vectors"), embedder, nil)

	history, err := storage.NewSQLiteHistory(filepath.Join(dir, "forms.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = history.Close() })

	a := agent.NewAgent(agent.Options{
		Extractor:  extract.NewExtractor(),
		Masker:     pii.DefaultChain(),
		Summarizer: summarize.NewSummarizer(gen, 0, nil),
		Store:      st,
		Retriever:  retriever.NewRetriever(embedder),
		Composer:   qa.NewComposer(gen),
		History:    history,
		TopK:       3,
	})

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.SnapshotDir = filepath.Join(dir, "vectors")
	cfg.Storage.DatabasePath = filepath.Join(dir, "forms.db")

	return NewServer(a, history, cfg, zap.NewNop())
}

func multipartUpload(t *testing.T, field, filename, content, question string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if question != "" {
		if err := mw.WriteField("question", question); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleProcess(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartUpload(t, "file", "w2_2024.txt",
		"Employee: Jane Doe\nTax year: 2024\nWages: $85,000\n", "")
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.handleProcess(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result models.ProcessResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Text, "[NAME]") {
		t.Errorf("response text should be masked, got %q", result.Text)
	}
	if result.Stats.DocCount != 1 {
		t.Errorf("DocCount = %d, want 1", result.Stats.DocCount)
	}
}

func TestHandleProcess_MissingFile(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("question", "anything")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	s.handleProcess(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("error body missing, got %s", rec.Body.String())
	}
}

func TestHandleProcessMulti(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"w2_2023.txt", "w2_2024.txt"} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("Form W-2 content for " + name)); err != nil {
			t.Fatal(err)
		}
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/process_multi", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	s.handleProcessMulti(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result models.ProcessResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Text != "Processed 2 documents successfully." {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestHandleProcessMulti_NoFiles(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/process_multi", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	s.handleProcessMulti(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAsk_EmptyCorpus(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask",
		strings.NewReader(`{"question":"What were the wages in 2024?"}`))
	rec := httptest.NewRecorder()

	s.handleAsk(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.AskResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != qa.NoDocumentsAnswer {
		t.Errorf("Answer = %q, want %q", resp.Answer, qa.NoDocumentsAnswer)
	}
}

func TestHandleAsk_AfterUpload(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartUpload(t, "file", "w2_2024.txt",
		"Form W-2\nWages in 2024 were $85,000\n", "")
	upReq := httptest.NewRequest(http.MethodPost, "/process", body)
	upReq.Header.Set("Content-Type", contentType)
	upRec := httptest.NewRecorder()
	s.handleProcess(upRec, upReq)
	if upRec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", upRec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask",
		strings.NewReader(`{"question":"What were the wages in 2024?","top_k":1}`))
	rec := httptest.NewRecorder()
	s.handleAsk(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.AskResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Answer, "85,000") {
		t.Errorf("answer should be grounded in the upload, got %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Filename != "w2_2024.txt" {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty question", `{"question":""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			s.handleAsk(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleHistory(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartUpload(t, "file", "w2.txt", "Wages: $85,000", "")
	upReq := httptest.NewRequest(http.MethodPost, "/process", body)
	upReq.Header.Set("Content-Type", contentType)
	s.handleProcess(httptest.NewRecorder(), upReq)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	s.handleHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Forms []*models.FormRecord `json:"forms"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Forms) != 1 || resp.Forms[0].Filename != "w2.txt" {
		t.Errorf("forms = %+v", resp.Forms)
	}
}

func TestHandleHistory_Disabled(t *testing.T) {
	s := newTestServer(t)
	s.history = nil

	rec := httptest.NewRecorder()
	s.handleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartUpload(t, "file", "w2.txt", "Wages: $85,000", "")
	upReq := httptest.NewRequest(http.MethodPost, "/process", body)
	upReq.Header.Set("Content-Type", contentType)
	s.handleProcess(httptest.NewRecorder(), upReq)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["documents"].(float64) != 1 {
		t.Errorf("documents = %v", resp["documents"])
	}
	if resp["vector_index_size"].(float64) != 1 {
		t.Errorf("vector_index_size = %v", resp["vector_index_size"])
	}
	if resp["forms_processed"].(float64) != 1 {
		t.Errorf("forms_processed = %v", resp["forms_processed"])
	}
	if _, ok := resp["config"]; !ok {
		t.Error("status should echo the active config")
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
