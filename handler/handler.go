// Package handler provides the HTTP handlers for the slotdb server.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stevemurr/slotdb/docdb"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	db     *docdb.Collection
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Handler over the root collection db and wires up all routes.
func New(db *docdb.Collection, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{db: db, logger: logger, mux: http.NewServeMux()}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	// Sub-tree of the collection at ?path=a/b
	h.mux.HandleFunc("GET /tree", h.tree)

	// --- Record endpoints (collection selected by ?path=) ---
	h.mux.HandleFunc("POST /records", h.insert)
	h.mux.HandleFunc("POST /records/batch", h.insertMany)
	h.mux.HandleFunc("GET /records/{id}", h.find)
	h.mux.HandleFunc("PATCH /records/{id}", h.update)
	h.mux.HandleFunc("PATCH /records", h.updateMany)
	h.mux.HandleFunc("DELETE /records/{id}", h.remove)
	h.mux.HandleFunc("DELETE /records", h.removeMany)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeOpError maps collection errors to HTTP status codes.
func (h *Handler) writeOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docdb.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, docdb.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// collection resolves the ?path= query parameter against the root.
func (h *Handler) collection(r *http.Request) *docdb.Collection {
	return h.db.At(r.URL.Query().Get("path"))
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "slotdb",
		"ref":     h.db.Ref(),
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- tree ----------

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collection(r).Load(r.Context()))
}

// ---------- record CRUD ----------

func (h *Handler) insert(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := readJSON(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec, err := h.collection(r).Insert(r.Context(), data)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) insertMany(w http.ResponseWriter, r *http.Request) {
	var items []map[string]any
	if err := readJSON(r, &items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	recs, err := h.collection(r).InsertMany(r.Context(), items)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recs)
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	rec := h.collection(r).Find(r.Context(), r.PathValue("id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := readJSON(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec, err := h.collection(r).Update(r.Context(), r.PathValue("id"), updates)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) updateMany(w http.ResponseWriter, r *http.Request) {
	var updates []docdb.Update
	if err := readJSON(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	recs, err := h.collection(r).UpdateMany(r.Context(), updates)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.collection(r).Remove(r.Context(), id) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (h *Handler) removeMany(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := readJSON(r, &ids); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	results, err := h.collection(r).RemoveMany(r.Context(), ids)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
