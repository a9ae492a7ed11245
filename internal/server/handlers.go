package server

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/formmind/formmind/internal/agent"
	"github.com/formmind/formmind/internal/models"
	"github.com/formmind/formmind/internal/storage"
)

// maxUploadBytes caps multipart form memory before spilling to disk.
const maxUploadBytes = 32 << 20

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	question := r.FormValue("question")
	s.logger.Debug("process request",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(content)),
		zap.Bool("has_question", question != ""),
	)
	result, err := s.agent.Process(r.Context(), agent.Upload{Filename: header.Filename, Content: content}, question)
	if err != nil {
		s.logger.Error("process failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleProcessMulti(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		s.respondError(w, http.StatusBadRequest, "files are required")
		return
	}
	uploads := make([]agent.Upload, 0, len(r.MultipartForm.File["files"]))
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to open "+header.Filename)
			return
		}
		content, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read "+header.Filename)
			return
		}
		uploads = append(uploads, agent.Upload{Filename: header.Filename, Content: content})
	}
	question := r.FormValue("question")
	s.logger.Debug("process_multi request", zap.Int("files", len(uploads)), zap.Bool("has_question", question != ""))
	result, err := s.agent.ProcessBatch(r.Context(), uploads, question)
	if err != nil {
		s.logger.Error("process_multi failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))
	resp, err := s.agent.Ask(r.Context(), &req)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	records, err := s.history.ListForms(r.Context(), 50)
	if err != nil {
		s.logger.Error("history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.FormRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"forms": records})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.agent.Snapshot()
	if err != nil {
		s.logger.Error("status: load snapshot failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": len(snap.Documents),
	}
	if snap.Index != nil {
		resp["vector_index_size"] = snap.Index.Size()
		resp["embedding_dimensions"] = snap.Index.Dimensions()
	} else {
		resp["vector_index_size"] = 0
	}
	if s.history != nil {
		if count, err := s.history.CountForms(r.Context()); err == nil {
			resp["forms_processed"] = count
		}
	}
	if diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.SnapshotDir,
		s.config.Storage.DatabasePath,
	); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"snapshot_dir":     s.config.Storage.SnapshotDir,
		"database_path":    s.config.Storage.DatabasePath,
		"embedding_model":  s.config.Embedding.Model,
		"generation_model": s.config.Generation.Model,
		"top_k":            s.config.QA.TopK,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
