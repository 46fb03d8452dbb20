package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shelftest/shelftest/internal/insight"
	"github.com/shelftest/shelftest/internal/narrative"
	"github.com/shelftest/shelftest/internal/report"
	"github.com/shelftest/shelftest/internal/store"
)

type fakeResults struct {
	test    insight.Test
	summary []insight.SummaryRow
}

func (f *fakeResults) GetTest(ctx context.Context, testID string) (insight.Test, error) {
	if testID != f.test.ID {
		return insight.Test{}, store.ErrNotFound
	}
	return f.test, nil
}

func (f *fakeResults) GetVariants(ctx context.Context, testID string) ([]insight.Variant, error) {
	return []insight.Variant{{TestID: testID, VariantType: insight.VariantA, Title: "Red Spatula"}}, nil
}

func (f *fakeResults) GetSummary(ctx context.Context, testID string) ([]insight.SummaryRow, error) {
	return f.summary, nil
}

func (f *fakeResults) GetPurchaseDrivers(ctx context.Context, testID string) ([]insight.PurchaseDriverRow, error) {
	return []insight.PurchaseDriverRow{{VariantType: insight.VariantA, Value: 4.2, Count: 31}}, nil
}

func (f *fakeResults) GetCompetitiveInsights(ctx context.Context, testID string) ([]insight.CompetitiveInsightRow, error) {
	return nil, nil
}

func (f *fakeResults) GetAIInsight(ctx context.Context, testID string) (*insight.AIInsight, error) {
	return nil, nil
}

func (f *fakeResults) GetComments(ctx context.Context, testID string, skin insight.Skin) ([]insight.ShopperComment, error) {
	return nil, nil
}

type fakeInsightCaller struct{ resp string }

func (f *fakeInsightCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return f.resp, nil
}
func (f *fakeInsightCaller) ModelName() string { return "fake" }

type fakeInsightWriter struct {
	saved chan insight.AIInsight
}

func (f *fakeInsightWriter) PutAIInsight(ctx context.Context, ai insight.AIInsight) error {
	f.saved <- ai
	return nil
}

func newTestServer(gen *narrative.Generator) http.Handler {
	results := &fakeResults{
		test: insight.Test{ID: "t1", Name: "Spatula Test", Status: insight.StatusComplete, Skin: insight.SkinAmazon},
		summary: []insight.SummaryRow{
			{VariantType: insight.VariantA, ShareOfClicks: 55, ShareOfBuy: 60, ValueScore: 4.1, Win: true},
		},
	}
	loader := insight.NewLoader(insight.NewService(results))
	return NewServer(loader, report.NewPDFRenderer(), gen)
}

func TestReportJSON(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/tests/t1/report", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		OK       bool             `json:"ok"`
		Sections []report.Section `json:"sections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || len(body.Sections) == 0 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	// Sections use the same snake_case wire format as every other payload.
	if !strings.Contains(rec.Body.String(), `"kind":"cover"`) {
		t.Fatalf("section keys are not snake_case: %s", rec.Body.String())
	}
}

func TestReportUnknownTest(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/tests/missing/report", nil))

	if rec.Code != 404 {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), CodeNotFound) {
		t.Fatalf("error code missing: %s", rec.Body.String())
	}
}

func TestExportXLSXHeaders(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/tests/t1/export.xlsx", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "Amazon_Spatula_Test_export.xlsx") {
		t.Fatalf("unexpected disposition %q", cd)
	}
}

func TestRegenerateNotConfigured(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/tests/t1/insights/regenerate", nil))

	if rec.Code != 400 {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRegenerateAcceptedAndPersists(t *testing.T) {
	writer := &fakeInsightWriter{saved: make(chan insight.AIInsight, 1)}
	gen := narrative.NewGenerator(&fakeInsightCaller{resp: `{"comparison":"A wins."}`}, writer)

	srv := newTestServer(gen)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/tests/t1/insights/regenerate", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	select {
	case ai := <-writer.saved:
		if ai.TestID != "t1" || ai.Comparison != "A wins." {
			t.Fatalf("unexpected insight %+v", ai)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("regeneration never persisted an insight")
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/tests/t1/bogus", nil))

	if rec.Code != 404 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMethodGatedRoutes(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/tests/t1/report", nil))

	if rec.Code != 404 {
		t.Fatalf("wrong-method request must 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/health", nil))

	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health check failed: %d %s", rec.Code, rec.Body.String())
	}
}
