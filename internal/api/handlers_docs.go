package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/docnorm/internal/store"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.log.Error("list documents", "error", err)
		jsonError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.DocumentSummary{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": list})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":     rec.ID,
		"filename":   rec.Filename,
		"created_at": rec.CreatedAt,
		"document":   rec.Doc,
	})
}

func (s *Server) handleGetText(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(rec.Doc.Text))
}

func (s *Server) handleGetHTML(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(rec.Doc.HTML))
}

// handleGetAsset serves asset payload bytes. An unresolved remote
// reference has no bytes to serve; the client gets the source URL and
// a 409 so it can resolve the asset itself.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	token := chi.URLParam(r, "token")

	asset, err := s.store.GetAsset(r.Context(), docID, token)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "asset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("load asset", "doc_id", docID, "token", token, "error", err)
		jsonError(w, "failed to load asset", http.StatusInternalServerError)
		return
	}

	if !asset.Resolved() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"error":      "asset was not resolved at ingest time",
			"source_url": asset.SourceURL,
		})
		return
	}

	mime := asset.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	if asset.OriginalName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", asset.OriginalName))
	}
	w.Write(asset.Bytes)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	existed, err := s.store.DeleteDocument(r.Context(), docID)
	if err != nil {
		s.log.Error("delete document", "doc_id", docID, "error", err)
		jsonError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	if !existed {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*store.DocumentRecord, bool) {
	docID := chi.URLParam(r, "docID")
	rec, err := s.store.GetDocument(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.log.Error("load document", "doc_id", docID, "error", err)
		jsonError(w, "failed to load document", http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}
