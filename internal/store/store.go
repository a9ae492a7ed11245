// Package store owns the pairing of a vector index and its ordered document
// list, including persistence. It is the single write path that keeps the two
// aligned by position.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/formmind/formmind/internal/embedding"
	"github.com/formmind/formmind/internal/models"
	"github.com/formmind/formmind/internal/vector"
)

// Artifact file names inside the store directory. The two files form one
// logical snapshot and are only meaningful together.
const (
	vectorsFile   = "vectors.bin"
	documentsFile = "documents.json"
)

// Snapshot is the aligned pairing of a vector index and its ordered documents:
// the vector at position i belongs to Documents[i]. A Snapshot is an immutable
// value; Build and Load return fresh snapshots and never mutate old ones.
type Snapshot struct {
	Index     *vector.FlatIndex
	Documents []*models.Document
}

// Empty reports whether the snapshot holds no indexed documents.
func (s *Snapshot) Empty() bool {
	return s == nil || s.Index == nil || len(s.Documents) == 0
}

// snapshotManifest is the on-disk form of the documents artifact. Checksum is
// the SHA-256 of the vectors artifact written in the same build, so a load can
// tell whether the two files on disk belong together.
type snapshotManifest struct {
	Checksum  string             `json:"checksum"`
	Documents []*models.Document `json:"documents"`
}

// Store builds, persists, and reloads snapshots. All rebuilds are serialized
// through a single-writer mutex so the persisted artifact pair always
// originates from one Build call.
type Store struct {
	dir      string
	embedder embedding.Embedder
	logger   *zap.Logger

	mu      sync.Mutex // serializes Build bodies and artifact writes
	current *Snapshot
}

// NewStore creates a store persisting under dir, embedding with embedder.
// logger may be nil.
func NewStore(dir string, embedder embedding.Embedder, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, embedder: embedder, logger: logger}
}

// Build performs a full rebuild: embeds every document's text in order,
// constructs a fresh index sized to the embedding dimension, adds all vectors
// in document order, persists both artifacts, and returns the new snapshot.
// On any failure the previously persisted snapshot remains authoritative.
//
// Rebuilds are always from scratch; callers extending the corpus append to the
// previous snapshot's document list and pass the full list here.
func (s *Store) Build(ctx context.Context, docs []*models.Document) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(docs) == 0 {
		if err := s.removeArtifactsLocked(); err != nil {
			return nil, err
		}
		snap := &Snapshot{}
		s.current = snap
		return snap, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(docs))
	}

	idx, err := vector.NewFlatIndex(s.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Add(embeddings); err != nil {
		return nil, fmt.Errorf("add vectors: %w", err)
	}

	if err := s.persistLocked(idx, docs); err != nil {
		return nil, err
	}

	snap := &Snapshot{Index: idx, Documents: docs}
	s.current = snap
	s.logger.Info("index rebuilt",
		zap.Int("documents", len(docs)),
		zap.Int("dimensions", idx.Dimensions()),
	)
	return snap, nil
}

// Load reads the persisted snapshot. When either artifact is absent, or the
// pair is unreadable, misaligned, or not from the same build, an empty snapshot
// is returned with a nil error; the caller sees "no index" rather than a
// partial state.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Current returns the most recent snapshot, loading from disk on first use.
func (s *Store) Current() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current, nil
	}
	snap, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	s.current = snap
	return snap, nil
}

func (s *Store) loadLocked() (*Snapshot, error) {
	vecPath := filepath.Join(s.dir, vectorsFile)
	docPath := filepath.Join(s.dir, documentsFile)

	docData, err := os.ReadFile(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("read documents artifact: %w", err)
	}
	idx, err := vector.LoadFlatIndex(vecPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Snapshot{}, nil
		}
		// Unreadable counterpart: degrade to empty, never partially load.
		s.logger.Warn("vector artifact unreadable, treating as no index", zap.Error(err))
		return &Snapshot{}, nil
	}

	var manifest snapshotManifest
	if err := json.Unmarshal(docData, &manifest); err != nil {
		s.logger.Warn("documents artifact unreadable, treating as no index", zap.Error(err))
		return &Snapshot{}, nil
	}
	sum, err := fileChecksum(vecPath)
	if err != nil {
		s.logger.Warn("vector artifact unreadable, treating as no index", zap.Error(err))
		return &Snapshot{}, nil
	}
	if manifest.Checksum != sum {
		s.logger.Warn("snapshot artifacts are from different builds, treating as no index",
			zap.String("expected", manifest.Checksum),
			zap.String("actual", sum),
		)
		return &Snapshot{}, nil
	}
	if idx.Size() != len(manifest.Documents) {
		s.logger.Warn("snapshot artifacts misaligned, treating as no index",
			zap.Int("vectors", idx.Size()),
			zap.Int("documents", len(manifest.Documents)),
		)
		return &Snapshot{}, nil
	}
	return &Snapshot{Index: idx, Documents: manifest.Documents}, nil
}

// persistLocked replaces the snapshot all-or-nothing: both artifacts are
// staged as temp files first and renamed into place only after both writes
// succeeded, so a failed write leaves the previous pair untouched. The
// documents artifact carries a checksum of the vectors artifact, letting
// loadLocked reject a pair whose halves come from different builds.
func (s *Store) persistLocked(idx *vector.FlatIndex, docs []*models.Document) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	vecPath := filepath.Join(s.dir, vectorsFile)
	docPath := filepath.Join(s.dir, documentsFile)

	vecTmp := vecPath + ".staged"
	if err := idx.Save(vecTmp); err != nil {
		return fmt.Errorf("stage vectors artifact: %w", err)
	}
	sum, err := fileChecksum(vecTmp)
	if err != nil {
		_ = os.Remove(vecTmp)
		return fmt.Errorf("checksum vectors artifact: %w", err)
	}
	docData, err := json.Marshal(snapshotManifest{Checksum: sum, Documents: docs})
	if err != nil {
		_ = os.Remove(vecTmp)
		return fmt.Errorf("marshal documents: %w", err)
	}
	docTmp := docPath + ".staged"
	if err := os.WriteFile(docTmp, docData, 0644); err != nil {
		_ = os.Remove(vecTmp)
		return fmt.Errorf("stage documents artifact: %w", err)
	}

	if err := os.Rename(docTmp, docPath); err != nil {
		_ = os.Remove(vecTmp)
		_ = os.Remove(docTmp)
		return fmt.Errorf("replace documents artifact: %w", err)
	}
	if err := os.Rename(vecTmp, vecPath); err != nil {
		_ = os.Remove(vecTmp)
		return fmt.Errorf("replace vectors artifact: %w", err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Store) removeArtifactsLocked() error {
	for _, name := range []string{vectorsFile, documentsFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}
