// Package integration provides end-to-end tests over the full form pipeline.
package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/formmind/formmind/internal/agent"
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

func newPipeline(t *testing.T, dir string) *agent.Agent {
	t.Helper()
	embedder := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(0), 100)
	gen := &generation.MockGenerator{}

	history, err := storage.NewSQLiteHistory(filepath.Join(dir, "forms.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = history.Close() })

	a := agent.NewAgent(agent.Options{
		Extractor:  extract.NewExtractor(),
		Masker:     pii.DefaultChain(),
		Summarizer: summarize.NewSummarizer(gen, 0, nil),
		Store:      store.NewStore(filepath.Join(dir, "vectors"), embedder, nil),
		Retriever:  retriever.NewRetriever(embedder),
		Composer:   qa.NewComposer(gen),
		History:    history,
		TopK:       3,
	})
	return a
}

func TestIntegration_WageQuestionAcrossYears(t *testing.T) {
	dir := t.TempDir()
	a := newPipeline(t, dir)
	ctx := context.Background()

	forms := []struct {
		name string
		text string
	}{
		{"w2_2023.txt", "Form W-2 Wage and Tax Statement\nEmployee: Jane Doe\nWages in 2023 were $70,000\n"},
		{"w2_2024.txt", "Form W-2 Wage and Tax Statement\nEmployee: Jane Doe\nWages in 2024 were $85,000\n"},
		{"w2_2025.txt", "Form W-2 Wage and Tax Statement\nEmployee: Jane Doe\nWages in 2025 were $95,000\n"},
	}
	for _, f := range forms {
		result, err := a.Process(ctx, agent.Upload{Filename: f.name, Content: []byte(f.text)}, "")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(result.Text, "[NAME]") {
			t.Errorf("%s: display text should mask the employee name", f.name)
		}
	}

	resp, err := a.Ask(ctx, &models.AskRequest{Question: "What were the wages in 2024?", TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Sources[0].Filename != "w2_2024.txt" {
		t.Errorf("retrieved %q, want the 2024 statement", resp.Sources[0].Filename)
	}
	if !strings.Contains(resp.Answer, "85,000") {
		t.Errorf("answer = %q, want it grounded in the 2024 wages", resp.Answer)
	}

	// Unanswerable questions fall back to the sentinel rather than a guess.
	resp, err = a.Ask(ctx, &models.AskRequest{Question: "zzqx unrelated gibberish"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != qa.NotFoundAnswer {
		t.Errorf("answer = %q, want %q", resp.Answer, qa.NotFoundAnswer)
	}
}

func TestIntegration_CorpusSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newPipeline(t, dir)
	for i := 0; i < 3; i++ {
		up := agent.Upload{
			Filename: fmt.Sprintf("form_%d.txt", i),
			Content:  []byte(fmt.Sprintf("Archived form %d with its own content", i)),
		}
		if _, err := first.Process(ctx, up, ""); err != nil {
			t.Fatal(err)
		}
	}

	// A fresh pipeline over the same directory answers from the persisted corpus.
	second := newPipeline(t, dir)
	snap, err := second.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Documents) != 3 {
		t.Fatalf("restarted pipeline sees %d documents, want 3", len(snap.Documents))
	}
	if snap.Index.Size() != 3 {
		t.Fatalf("restarted index holds %d vectors, want 3", snap.Index.Size())
	}

	resp, err := second.Ask(ctx, &models.AskRequest{Question: "Archived form 1 content?", TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("got %d sources", len(resp.Sources))
	}
}

func TestIntegration_ConcurrentUploadsAndQuestions(t *testing.T) {
	dir := t.TempDir()
	a := newPipeline(t, dir)
	ctx := context.Background()

	const uploads = 6
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			up := agent.Upload{
				Filename: fmt.Sprintf("form_%d.txt", i),
				Content:  []byte(fmt.Sprintf("Concurrent form %d payload", i)),
			}
			if _, err := a.Process(ctx, up, ""); err != nil {
				t.Errorf("upload %d: %v", i, err)
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Questions during ingestion must see a consistent snapshot.
			if _, err := a.Ask(ctx, &models.AskRequest{Question: "Concurrent form payload?"}); err != nil {
				t.Errorf("ask: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, err := a.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Documents) != uploads {
		t.Errorf("got %d documents after %d concurrent uploads", len(snap.Documents), uploads)
	}
	if snap.Index.Size() != len(snap.Documents) {
		t.Errorf("snapshot misaligned: %d vectors, %d documents", snap.Index.Size(), len(snap.Documents))
	}
}

func TestIntegration_EmptyCorpusFallback(t *testing.T) {
	a := newPipeline(t, t.TempDir())

	resp, err := a.Ask(context.Background(), &models.AskRequest{Question: "What were the wages?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != qa.NoDocumentsAnswer {
		t.Errorf("answer = %q, want %q", resp.Answer, qa.NoDocumentsAnswer)
	}
}
