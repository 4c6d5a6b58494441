package document

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers document and knowledge base routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.CreateDocument)
		r.Get("/", h.ListDocuments)

		r.Route("/{document_id}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Put("/", h.UpdateDocument)
			r.Delete("/", h.DeleteDocument)
			r.Post("/reprocess", h.ReprocessDocument)
			r.Get("/chunks", h.ListChunks)
		})
	})

	r.Post("/knowledge-base/reembed", h.ReembedCorpus)
}
