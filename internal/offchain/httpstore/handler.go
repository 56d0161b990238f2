package httpstore

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/powermarket/internal/commit"
	"github.com/roach88/powermarket/internal/offchain"
)

// NewHandler serves store under /{collection}/{hash}. Documents are stored
// under the locator offchain.Locator(baseURL, collection), the same locator
// a market configured with baseURL records on the ledger, so a local client
// and an HTTP client see the same documents whatever host name they used.
func NewHandler(store offchain.Store, baseURL string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{store: store, baseURL: baseURL, logger: logger}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/{collection}/{hash}", h.get)
	r.Put("/{collection}/{hash}", h.put)
	return r
}

type handler struct {
	store   offchain.Store
	baseURL string
	logger  *slog.Logger
}

func (h *handler) handle(w http.ResponseWriter, r *http.Request) (offchain.Handle, bool) {
	hash, err := commit.ParseHash(chi.URLParam(r, "hash"))
	if err != nil || hash.IsZero() {
		writeError(w, http.StatusBadRequest, "BAD_HASH", "document hash must be a hex sha256 digest")
		return offchain.Handle{}, false
	}
	return offchain.Handle{Locator: offchain.Locator(h.baseURL, chi.URLParam(r, "collection")), Hash: hash}, true
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.handle(w, r)
	if !ok {
		return
	}

	doc, err := h.store.Get(r.Context(), handle)
	if errors.Is(err, offchain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no document at "+handle.URL())
		return
	}
	if err != nil {
		h.logger.Error("document read failed", "handle", handle.URL(), "error", err)
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "document store failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	handle, ok := h.handle(w, r)
	if !ok {
		return
	}

	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", err.Error())
		return
	}

	if err := h.store.Put(r.Context(), handle, doc); err != nil {
		h.logger.Error("document write failed", "handle", handle.URL(), "error", err)
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "document store failed")
		return
	}

	h.logger.Debug("document stored", "handle", handle.URL(), "bytes", len(doc))
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
