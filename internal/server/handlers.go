package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/pipeline"
	"github.com/jonathan/nfa-builder/internal/schemas"
	"github.com/jonathan/nfa-builder/internal/signatures"
	"github.com/jonathan/nfa-builder/internal/storage"
	"github.com/jonathan/nfa-builder/internal/types"
	rootschemas "github.com/jonathan/nfa-builder/schemas"
)

// docxContentType is the MIME type of generated documents.
const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// readBody reads a bounded request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &ErrValidation{Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}
		}
		return nil, &ErrValidation{Message: "failed to read request body"}
	}
	return body, nil
}

// decodeGeneration reads a generation-shaped body, checks it against the
// request schema and decodes it into dst.
func (s *Server) decodeGeneration(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return &ErrValidation{Message: "request body is not valid JSON"}
	}
	if err := schemas.Validate(rootschemas.GenerationRequest, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ErrValidation{Message: err.Error()}
	}
	return nil
}

// writeBuildResult writes a build result with a status derived from err.
func (s *Server) writeBuildResult(w http.ResponseWriter, result types.BuildResult, err error) {
	status := http.StatusOK
	if err != nil {
		status = StatusForKind(pipeline.KindOf(err))
	}
	writeJSON(w, s.logger, status, result)
}

// rejectBuild writes a request-level failure in the build result envelope.
func (s *Server) rejectBuild(w http.ResponseWriter, err error) {
	writeJSON(w, s.logger, HTTPStatus(err), types.BuildResult{
		Success:   false,
		Error:     err.Error(),
		ErrorType: errorType(err),
	})
}

// handleGenerate builds a memo from a generation request.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerationRequest
	if err := s.decodeGeneration(w, r, &req); err != nil {
		s.rejectBuild(w, err)
		return
	}

	result, err := s.builder.Build(r.Context(), &req)
	s.writeBuildResult(w, result, err)
}

// handleGenerateStream builds a memo and streams progress via SSE. The final
// event is "result" carrying the build result.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req types.GenerationRequest
	if err := s.decodeGeneration(w, r, &req); err != nil {
		s.rejectBuild(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	ctx := pipeline.WithProgress(r.Context(), func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("step", event); err != nil {
			s.logger.Debug("failed to write SSE event", zap.Error(err))
		}
	})

	result, buildErr := s.builder.Build(ctx, &req)
	if buildErr != nil {
		s.logger.Warn("streamed build failed", zap.Error(buildErr))
	}
	if err := sse.WriteEvent("result", result); err != nil {
		s.logger.Debug("failed to write SSE result", zap.Error(err))
	}
}

// handleEdit applies an instruction to memo text and returns the text.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	var req types.EditRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, s.logger, &ErrValidation{Message: "invalid request body"})
		return
	}

	result, err := s.builder.Edit(r.Context(), &req)
	if err != nil {
		writeJSON(w, s.logger, StatusForKind(pipeline.KindOf(err)), result)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}

// handleDownloadEdited renders edited text into a document and sends the
// file as an attachment.
func (s *Server) handleDownloadEdited(w http.ResponseWriter, r *http.Request) {
	var req types.RenderRequest
	if err := s.decodeGeneration(w, r, &req); err != nil {
		s.rejectBuild(w, err)
		return
	}

	result, err := s.builder.BuildFromText(r.Context(), &req)
	if err != nil {
		s.writeBuildResult(w, result, err)
		return
	}
	s.serveDocument(w, r, result.FileName)
}

// handleFile sends a previously generated document.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if filepath.Ext(name) != storage.Extension {
		writeError(w, s.logger, &ErrNotFound{Resource: "file", ID: name})
		return
	}
	s.serveDocument(w, r, name)
}

func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request, name string) {
	f, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = &ErrNotFound{Resource: "file", ID: name}
		}
		writeError(w, s.logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		writeError(w, s.logger, fmt.Errorf("failed to stat %s: %w", name, err))
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleSignatures returns the signature grid the next build would use.
func (s *Server) handleSignatures(w http.ResponseWriter, r *http.Request) {
	layout := signatures.Resolve(r.Context(), s.signatures, s.defaults, s.logger)
	writeJSON(w, s.logger, http.StatusOK, layout)
}
