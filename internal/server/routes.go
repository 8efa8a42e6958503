package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Reports
	mux.HandleFunc("/api/report", s.app.ReportHandler.GenerateReportHandler) // POST - generate analyst report
	mux.HandleFunc("/api/report/", s.app.ReportHandler.ReportPDFHandler)     // GET /{id}/pdf - download cached report

	// API routes - Ingest and category maintenance
	mux.HandleFunc("/api/ingest", s.app.IngestHandler.IngestDirectoryHandler)
	mux.HandleFunc("/api/categories/reset", s.app.IngestHandler.ResetCategoriesHandler)

	// API routes - System
	mux.HandleFunc("/api/health", s.app.SystemHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.SystemHandler.VersionHandler)

	return mux
}
