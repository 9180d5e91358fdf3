package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/brunobiangulo/gostrata"
	"github.com/brunobiangulo/gostrata/block"
)

// maxBodyBytes bounds request bodies. A block dump for a long document
// runs a few MB, so this leaves generous headroom.
const maxBodyBytes = 64 << 20

type handler struct {
	processor *gostrata.Processor
}

func newHandler(p *gostrata.Processor) *handler {
	return &handler{processor: p}
}

// POST /structure
// Accepts a flat block dump for a single document and returns the
// structured result.
func (h *handler) handleStructure(w http.ResponseWriter, r *http.Request) {
	doc, err := block.DecodeDocument(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block payload: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	res, err := h.processor.Process(ctx, doc)
	if err != nil {
		if errors.Is(err, gostrata.ErrInvalidTree) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, "structuring timed out")
			return
		}
		writeError(w, http.StatusInternalServerError, "structuring failed")
		slog.Error("structure error", "document_id", doc.ID, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// POST /structure/batch
// Structures several documents in one call, fanning out across the
// processor's worker pool. Per-document failures are reported inline;
// only a canceled batch fails as a whole.
func (h *handler) handleStructureBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Documents []json.RawMessage `json:"documents"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents is required")
		return
	}

	docs := make([]*block.Document, len(req.Documents))
	for i, raw := range req.Documents {
		doc, err := block.DecodeDocument(bytes.NewReader(raw))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid block payload at index "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		docs[i] = doc
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	results, err := h.processor.ProcessAll(ctx, docs)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, "structuring timed out")
			return
		}
		writeError(w, http.StatusInternalServerError, "structuring failed")
		slog.Error("batch structure error", "count", len(docs), "error", err)
		return
	}

	type item struct {
		DocumentID string           `json:"document_id"`
		Result     *gostrata.Result `json:"result,omitempty"`
		Error      string           `json:"error,omitempty"`
	}

	items := make([]item, len(results))
	for i := range results {
		items[i].DocumentID = docs[i].ID
		if results[i].Err != nil {
			items[i].Error = results[i].Err.Error()
			continue
		}
		items[i].Result = &results[i]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": items,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
