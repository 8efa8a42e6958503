package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/services/ingest"
)

// IngestHandler handles HTTP requests for article ingestion and category
// maintenance
type IngestHandler struct {
	ingestService *ingest.Service
	store         interfaces.ArticleStore
	logger        arbor.ILogger
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(ingestService *ingest.Service, store interfaces.ArticleStore, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		store:         store,
		logger:        logger,
	}
}

// IngestDirectoryHandler handles POST /api/ingest by scanning the configured
// drop directory synchronously.
func (h *IngestHandler) IngestDirectoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	result, err := h.ingestService.IngestDirectory(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Directory ingest failed")
		WriteError(w, http.StatusInternalServerError, "Ingest failed")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// ResetCategoriesHandler handles POST /api/categories/reset. It removes
// every article-to-subcategory edge so the corpus can be re-scored.
func (h *IngestHandler) ResetCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	removed, err := h.store.ResetCategories(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Category reset failed")
		WriteError(w, http.StatusInternalServerError, "Reset failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
