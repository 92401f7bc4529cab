package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"quartergrid/internal/core"
	applog "quartergrid/internal/log"
	"quartergrid/internal/session"
	"quartergrid/internal/workbook"
)

// handleCreateSession opens a 1×1 grid, or with ?source=latest the grid
// last stored by the backend.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch src := r.URL.Query().Get("source"); src {
	case "":
		writeJSON(w, r, http.StatusCreated, newSessionView(s.sessions.Create(ctx)))
	case "latest":
		if s.reader == nil {
			writeError(w, r, http.StatusNotImplemented, "backend cannot reopen grids")
			return
		}
		st, snap, err := s.reader.ReadSnapshot(ctx)
		if err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Failed to read stored grid", applog.FieldError, err)
			writeError(w, r, http.StatusNotFound, "no stored grid to open")
			return
		}
		writeJSON(w, r, http.StatusCreated, newSessionView(s.sessions.Open(ctx, st, snap)))
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown source %q", src))
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.sessions.Get(id); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddTable(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.AddTable(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.AddRow(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(sess))
}

func (s *Server) handlePutValues(w http.ResponseWriter, r *http.Request) {
	var req valuesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.PutValues(r.Context(), r.PathValue("id"), req.Cells)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.sessions.Submit(ctx, r.PathValue("id"))
	if err == nil {
		writeJSON(w, r, http.StatusOK, newSessionView(sess))
		return
	}
	if _, ok := asValidationErrors(err); ok {
		writeJSON(w, r, http.StatusUnprocessableEntity, newSessionView(sess))
		return
	}
	if errors.Is(err, session.ErrSessionNotFound) {
		s.writeSessionError(w, r, err)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Failed to store submission", err,
		applog.ComponentSubmission, applog.OpSubmit, applog.NewFields().WithSession(sess.ID))
	writeError(w, r, http.StatusBadGateway, "the grid is valid but could not be stored")
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := workbook.WriteXLSX(&buf, sess.Grid()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build workbook", applog.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "could not build workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="grid.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleCompute derives the aggregates of one row without a session.
// Missing or null months count as 0.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Months) > 12 {
		writeError(w, r, http.StatusBadRequest, "at most 12 months are allowed")
		return
	}
	var months [12]float64
	for i, v := range req.Months {
		if v != nil {
			months[i] = *v
		}
	}
	agg := core.ComputeRow(months)
	writeJSON(w, r, http.StatusOK, computeResponse{Values: agg, Display: agg.Rounded()})
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var ie *session.InputError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, r, http.StatusNotFound, "session not found")
	case errors.As(err, &ie):
		writeJSON(w, r, http.StatusUnprocessableEntity, apiError{
			Error: ie.Err.Error(),
			Details: map[string]any{
				"index":  ie.Index,
				"table":  ie.Cell.Table,
				"row":    ie.Cell.Row,
				"column": ie.Cell.Column,
			},
		})
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session operation failed", applog.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
