// Package api exposes stored artifacts over a read-only HTTP interface, for
// plotting clients that consume scores without linking the engine.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"godecode/domain/core"
	"godecode/domain/decoding"
	"godecode/internal"
	"godecode/ports"
)

// NewRouter builds the artifact API router.
func NewRouter(store ports.ArtifactStore, log *internal.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/artifacts/{kind}/{subject}/{analysis}", func(w http.ResponseWriter, req *http.Request) {
		key := decoding.Key{
			Kind:     decoding.ArtifactKind(chi.URLParam(req, "kind")),
			Subject:  core.SubjectID(chi.URLParam(req, "subject")),
			Analysis: core.AnalysisName(chi.URLParam(req, "analysis")),
		}
		var payload json.RawMessage
		err := store.Load(req.Context(), key, &payload)
		if core.IsMissingArtifact(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("load %s/%s/%s: %v", key.Kind, key.Subject, key.Analysis, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	})

	return r
}
