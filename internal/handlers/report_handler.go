package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flashback/internal/interfaces"
	"github.com/ternarybob/flashback/internal/models"
	"github.com/ternarybob/flashback/internal/services/render"
)

// ReportGenerator runs one report request through the pipeline
type ReportGenerator interface {
	GenerateReport(ctx context.Context, input string) *models.PipelineResult
}

// ReportHandler handles HTTP requests for report generation and export
type ReportHandler struct {
	pipeline ReportGenerator
	cache    interfaces.ReportCache
	renderer *render.Service
	logger   arbor.ILogger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(pipeline ReportGenerator, cache interfaces.ReportCache, renderer *render.Service, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		pipeline: pipeline,
		cache:    cache,
		renderer: renderer,
		logger:   logger,
	}
}

type generateReportRequest struct {
	Input string `json:"input"`
}

// GenerateReportHandler handles POST /api/report.
// The input is breaking news text or a pre-filtered JSON article list.
// ?format=html returns the rendered report instead of the JSON result.
func (h *ReportHandler) GenerateReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		WriteError(w, http.StatusBadRequest, "input is required")
		return
	}

	result := h.pipeline.GenerateReport(r.Context(), req.Input)

	if r.URL.Query().Get("format") == "html" {
		h.writeHTMLResult(w, result)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// writeHTMLResult renders the report (or the notice when no report was
// produced) as an HTML fragment.
func (h *ReportHandler) writeHTMLResult(w http.ResponseWriter, result *models.PipelineResult) {
	source := result.Report
	if source == "" && result.Notice != "" {
		source = fmt.Sprintf("## Notice\n\n%s", result.Notice)
	}

	html, err := h.renderer.RenderHTML(source)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to render report HTML")
		WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.ReportID != "" {
		w.Header().Set("X-Report-ID", result.ReportID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// ReportPDFHandler handles GET /api/report/{id}/pdf by re-rendering a
// cached report.
func (h *ReportHandler) ReportPDFHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	reportID := extractReportID(r.URL.Path)
	if reportID == "" {
		WriteError(w, http.StatusBadRequest, "report id is required")
		return
	}

	cached, err := h.cache.GetReport(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, interfaces.ErrReportNotFound) {
			WriteError(w, http.StatusNotFound, "Report not found")
			return
		}
		h.logger.Error().Err(err).Str("report_id", reportID).Msg("Failed to load cached report")
		WriteError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}

	data, err := h.renderer.RenderPDF(cached.Report, "Financial Intelligence Report")
	if err != nil {
		h.logger.Error().Err(err).Str("report_id", reportID).Msg("Failed to render report PDF")
		WriteError(w, http.StatusInternalServerError, "Failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", reportID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// extractReportID pulls the id out of /api/report/{id}/pdf
func extractReportID(path string) string {
	path = strings.TrimPrefix(path, "/api/report/")
	path = strings.TrimSuffix(path, "/pdf")
	if strings.Contains(path, "/") {
		return ""
	}
	return path
}
