package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reixn/http-recorder/internal/domain"
	"github.com/reixn/http-recorder/internal/usecase"
)

func (d *Deps) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "POST required", nil)
		return
	}
	var flow flowRecord
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	entry, err := flow.toEntry(d.Cfg.RedactHeaders)
	if err != nil {
		var pe *domain.ParseError
		if errors.As(err, &pe) {
			writeError(w, http.StatusBadRequest, "PARSE_ERROR", pe.Error(), map[string]any{"field": pe.Field})
			return
		}
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", err.Error(), nil)
		return
	}
	index, err := d.Rec.AddEntry(entry)
	if err != nil {
		if errors.Is(err, usecase.ErrWorkerFailed) || errors.Is(err, usecase.ErrSessionFailed) {
			writeError(w, http.StatusServiceUnavailable, "WORKER_FAILED", err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "SAVE_FAILED", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": index})
}

func (d *Deps) handleFinish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "POST required", nil)
		return
	}
	if err := d.Rec.Finish(); err != nil {
		writeError(w, http.StatusInternalServerError, "FINISH_FAILED", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "finished"})
}

func (d *Deps) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "GET required", nil)
		return
	}
	writeJSON(w, http.StatusOK, d.Rec.Stats())
}
