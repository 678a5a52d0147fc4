package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tetherhq/tether/internal/agent/tools"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"tools":          s.agent.Registry().Len(),
	})
}

func (s *Server) handleToolsList(w http.ResponseWriter, _ *http.Request) {
	all := s.agent.Registry().All()
	list := make([]map[string]any, len(all))
	for i, t := range all {
		list[i] = map[string]any{
			"name":         t.Name(),
			"description":  t.Description(),
			"input_schema": t.InputSchema(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": list, "count": len(list)})
}

func (s *Server) handleToolDispatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var params map[string]any
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "read body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
			return
		}
	}

	result, err := s.agent.Dispatch(r.Context(), name, params)
	if err != nil {
		var notFound *tools.NotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":       "tool_not_found",
				"message":     err.Error(),
				"known_tools": notFound.Known,
			})
			return
		}
		writeError(w, http.StatusBadGateway, "invocation_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tool": name, "result": result})
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if s.auditStore == nil {
		writeError(w, http.StatusNotFound, "not_found", "audit store not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	var err error
	var records any
	if tool := r.URL.Query().Get("tool"); tool != "" {
		records, err = s.auditStore.ByTool(r.Context(), tool, limit)
	} else {
		records, err = s.auditStore.Recent(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invocations": records})
}
