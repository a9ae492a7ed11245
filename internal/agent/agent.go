// Package agent orchestrates the form pipeline: extract, mask, summarize,
// index, and answer.
package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formmind/formmind/internal/extract"
	"github.com/formmind/formmind/internal/models"
	"github.com/formmind/formmind/internal/pii"
	"github.com/formmind/formmind/internal/qa"
	"github.com/formmind/formmind/internal/retriever"
	"github.com/formmind/formmind/internal/storage"
	"github.com/formmind/formmind/internal/store"
	"github.com/formmind/formmind/internal/summarize"
)

// Upload is one uploaded form file.
type Upload struct {
	Filename string
	Content  []byte
}

// Agent wires the pipeline components together. It is safe for concurrent
// use; ingestion is serialized so concurrent uploads cannot lose documents
// between the read of the current snapshot and the rebuild.
type Agent struct {
	extractor  *extract.Extractor
	masker     pii.Masker
	summarizer *summarize.Summarizer
	store      *store.Store
	retriever  *retriever.Retriever
	composer   *qa.Composer
	history    storage.History
	topK       int
	logger     *zap.Logger

	ingestMu sync.Mutex
}

// Options for NewAgent. History and Logger may be nil.
type Options struct {
	Extractor  *extract.Extractor
	Masker     pii.Masker
	Summarizer *summarize.Summarizer
	Store      *store.Store
	Retriever  *retriever.Retriever
	Composer   *qa.Composer
	History    storage.History
	TopK       int
	Logger     *zap.Logger
}

// NewAgent creates an agent from its components.
func NewAgent(opts Options) *Agent {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Agent{
		extractor:  opts.Extractor,
		masker:     opts.Masker,
		summarizer: opts.Summarizer,
		store:      opts.Store,
		retriever:  opts.Retriever,
		composer:   opts.Composer,
		history:    opts.History,
		topK:       opts.TopK,
		logger:     opts.Logger,
	}
}

// Process runs the full pipeline for a single uploaded form: extract text,
// mask PII for display, summarize, rebuild the index with the new document
// appended, and optionally answer a question against the updated corpus.
func (a *Agent) Process(ctx context.Context, up Upload, question string) (*models.ProcessResult, error) {
	start := time.Now()

	doc, masked, entityCount, err := a.prepare(up)
	if err != nil {
		return nil, err
	}
	summary, err := a.summarizer.Summarize(ctx, doc.Text)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	snap, err := a.ingest(ctx, []*models.Document{doc})
	if err != nil {
		return nil, err
	}

	answer := ""
	if question != "" {
		answer, err = a.answer(ctx, snap, question, a.topK)
		if err != nil {
			return nil, err
		}
	}

	elapsed := time.Since(start).Milliseconds()
	a.recordHistory(ctx, doc, entityCount, summary, elapsed)
	a.logger.Info("form processed",
		zap.String("filename", doc.Meta.Filename),
		zap.Int("pages", doc.Meta.Pages),
		zap.Int("entities", entityCount),
		zap.Int64("duration_ms", elapsed),
	)

	return &models.ProcessResult{
		Text:    masked,
		Summary: summary,
		Answer:  answer,
		Stats: models.ProcessStats{
			ProcessingTimeMS: elapsed,
			DocCount:         len(snap.Documents),
			EntityCount:      entityCount,
		},
	}, nil
}

// ProcessBatch runs the pipeline for several uploads at once: all documents
// are appended and indexed in a single rebuild, a merged summary is produced
// over the concatenated texts, and the optional question is answered against
// the updated corpus.
func (a *Agent) ProcessBatch(ctx context.Context, ups []Upload, question string) (*models.ProcessResult, error) {
	if len(ups) == 0 {
		return nil, fmt.Errorf("no files provided")
	}
	start := time.Now()

	docs := make([]*models.Document, 0, len(ups))
	texts := make([]string, 0, len(ups))
	totalEntities := 0
	for _, up := range ups {
		doc, _, entityCount, err := a.prepare(up)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", up.Filename, err)
		}
		docs = append(docs, doc)
		texts = append(texts, doc.Text)
		totalEntities += entityCount
	}

	summary, err := a.summarizer.Summarize(ctx, strings.Join(texts, " "))
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	snap, err := a.ingest(ctx, docs)
	if err != nil {
		return nil, err
	}

	answer := ""
	if question != "" {
		answer, err = a.answer(ctx, snap, question, a.topK)
		if err != nil {
			return nil, err
		}
	}

	elapsed := time.Since(start).Milliseconds()
	perDoc := elapsed / int64(len(docs))
	for _, doc := range docs {
		a.recordHistory(ctx, doc, 0, "", perDoc)
	}
	a.logger.Info("batch processed",
		zap.Int("files", len(ups)),
		zap.Int("entities", totalEntities),
		zap.Int64("duration_ms", elapsed),
	)

	return &models.ProcessResult{
		Text:    fmt.Sprintf("Processed %d documents successfully.", len(ups)),
		Summary: summary,
		Answer:  answer,
		Stats: models.ProcessStats{
			ProcessingTimeMS: elapsed,
			DocCount:         len(snap.Documents),
			EntityCount:      totalEntities,
		},
	}, nil
}

// Ask answers a question against the current corpus.
func (a *Agent) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	snap, err := a.store.Current()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	docs, err := a.retriever.Retrieve(ctx, snap, req.Question, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	answer, err := a.composer.Answer(ctx, req.Question, docs)
	if err != nil {
		return nil, err
	}
	sources := make([]models.AskSource, len(docs))
	for i, d := range docs {
		sources[i] = models.AskSource{Filename: d.Meta.Filename, Pages: d.Meta.Pages}
	}
	return &models.AskResponse{Answer: answer, Sources: sources}, nil
}

// Snapshot returns the current snapshot for status reporting.
func (a *Agent) Snapshot() (*store.Snapshot, error) {
	return a.store.Current()
}

// prepare extracts and normalizes one upload into a Document, masking PII for
// the display copy only. Indexed text is never masked.
func (a *Agent) prepare(up Upload) (*models.Document, string, int, error) {
	ext := filepath.Ext(up.Filename)
	extraction, err := a.extractor.Extract(up.Content, ext)
	if err != nil {
		return nil, "", 0, fmt.Errorf("extract text: %w", err)
	}
	doc := &models.Document{
		ID:   uuid.New().String(),
		Text: extraction.FullText,
		Meta: models.DocumentMeta{
			Filename: up.Filename,
			Pages:    len(extraction.Pages),
		},
	}
	masked, entityCount := a.masker.Mask(doc.Text)
	return doc, masked, entityCount, nil
}

// ingest appends docs to the current corpus and rebuilds the index. The
// read-append-rebuild sequence is serialized so concurrent uploads compose
// instead of overwriting each other.
func (a *Agent) ingest(ctx context.Context, docs []*models.Document) (*store.Snapshot, error) {
	a.ingestMu.Lock()
	defer a.ingestMu.Unlock()
	snap, err := a.store.Current()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	all := make([]*models.Document, 0, len(snap.Documents)+len(docs))
	all = append(all, snap.Documents...)
	all = append(all, docs...)
	newSnap, err := a.store.Build(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	return newSnap, nil
}

func (a *Agent) answer(ctx context.Context, snap *store.Snapshot, question string, k int) (string, error) {
	docs, err := a.retriever.Retrieve(ctx, snap, question, k)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	answer, err := a.composer.Answer(ctx, question, docs)
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (a *Agent) recordHistory(ctx context.Context, doc *models.Document, entities int, summary string, durationMS int64) {
	if a.history == nil {
		return
	}
	rec := &models.FormRecord{
		ID:          doc.ID,
		Filename:    doc.Meta.Filename,
		Pages:       doc.Meta.Pages,
		EntityCount: entities,
		Summary:     summary,
		DurationMS:  durationMS,
	}
	if err := a.history.RecordForm(ctx, rec); err != nil {
		a.logger.Warn("record form history failed", zap.String("id", doc.ID), zap.Error(err))
	}
}
