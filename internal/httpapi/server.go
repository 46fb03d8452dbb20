package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/shelftest/shelftest/internal/insight"
	"github.com/shelftest/shelftest/internal/narrative"
	"github.com/shelftest/shelftest/internal/report"
	"github.com/shelftest/shelftest/internal/store"
	"github.com/shelftest/shelftest/internal/xlsx"
)

var tracer = otel.Tracer("shelftest/httpapi")

const (
	CodeValidation = "validation"
	CodeNotFound   = "not_found"
	CodeInternal   = "internal"
)

// Error is the typed failure surfaced to API callers. Store and network
// failures are transient and non-fatal; the caller can retry because the
// failed test's cache slot is left unset.
type Error struct {
	Code      string
	Message   string
	Transient bool
	Status    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code, message string, transient bool) *Error {
	status := 500
	switch code {
	case CodeValidation:
		status = 400
	case CodeNotFound:
		status = 404
	}
	return &Error{Code: code, Message: message, Transient: transient, Status: status}
}

// Server serves the report JSON, the PDF and workbook downloads, and the
// narrative regeneration trigger. All consumers read through the same
// insight loader so they see identical numbers.
type Server struct {
	loader    *insight.Loader
	pdf       *report.PDFRenderer
	generator *narrative.Generator
}

func NewServer(loader *insight.Loader, pdf *report.PDFRenderer, generator *narrative.Generator) http.Handler {
	s := &Server{loader: loader, pdf: pdf, generator: generator}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tests/", s.handleTests)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func (s *Server) handleTests(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/tests/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" {
		writeError(w, newError(CodeValidation, "expected /v1/tests/{id}/...", false))
		return
	}
	testID := parts[0]
	action := strings.Join(parts[1:], "/")

	switch {
	case action == "report" && r.Method == http.MethodGet:
		s.handleReport(w, r, testID)
	case action == "report.pdf" && r.Method == http.MethodGet:
		s.handleReportPDF(w, r, testID)
	case action == "export.xlsx" && r.Method == http.MethodGet:
		s.handleExportXLSX(w, r, testID)
	case action == "insights/regenerate" && r.Method == http.MethodPost:
		s.handleRegenerate(w, r, testID)
	default:
		writeError(w, newError(CodeNotFound, "unknown route", false))
	}
}

func (s *Server) load(ctx context.Context, testID string) (*insight.Aggregation, *Error) {
	agg, err := s.loader.Load(ctx, testID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(CodeNotFound, "test "+testID+" not found", false)
		}
		return nil, newError(CodeInternal, err.Error(), true)
	}
	return agg, nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, testID string) {
	ctx, span := tracer.Start(r.Context(), "httpapi.report")
	span.SetAttributes(attribute.String("test.id", testID))
	defer span.End()

	agg, apiErr := s.load(ctx, testID)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":          true,
		"aggregation": agg,
		"sections":    report.Compose(agg),
	})
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request, testID string) {
	ctx, span := tracer.Start(r.Context(), "httpapi.report_pdf")
	span.SetAttributes(attribute.String("test.id", testID))
	defer span.End()

	agg, apiErr := s.load(ctx, testID)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	sections := report.Compose(agg)
	pdf, err := s.pdf.Render(ctx, agg, sections)
	if err != nil {
		writeError(w, newError(CodeInternal, "render pdf: "+err.Error(), true))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.PDFFileName(agg.Test.Name)+`"`)
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request, testID string) {
	ctx, span := tracer.Start(r.Context(), "httpapi.export_xlsx")
	span.SetAttributes(attribute.String("test.id", testID))
	defer span.End()

	agg, apiErr := s.load(ctx, testID)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	book, err := xlsx.Export(agg)
	if err != nil {
		writeError(w, newError(CodeInternal, "export workbook: "+err.Error(), true))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+xlsx.FileName(agg.Test.Skin, agg.Test.Name)+`"`)
	w.WriteHeader(200)
	_, _ = w.Write(book)
}

// handleRegenerate kicks off narrative regeneration and returns immediately.
// The caller is expected to reload the report afterwards; the cache slot is
// invalidated once the new insight lands.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request, testID string) {
	if s.generator == nil {
		writeError(w, newError(CodeValidation, "narrative regeneration is not configured", false))
		return
	}
	agg, apiErr := s.load(r.Context(), testID)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.generator.Regenerate(ctx, agg); err != nil {
			log.Printf("httpapi regenerate_failed test=%s err=%q", testID, err.Error())
			return
		}
		s.loader.Invalidate(testID)
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "status": "regenerating"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, e *Error) {
	writeJSON(w, e.Status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":      e.Code,
			"message":   e.Message,
			"transient": e.Transient,
		},
	})
}
