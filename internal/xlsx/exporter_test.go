package xlsx

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/shelftest/shelftest/internal/insight"
)

func age(n int) *int { return &n }

func baseAggregation() *insight.Aggregation {
	return &insight.Aggregation{
		Test: insight.Test{ID: "t1", Name: "Spatula Test", Skin: insight.SkinAmazon},
		Summary: []insight.SummaryRow{
			{VariantType: insight.VariantA, Label: "Variant A - Red Spatula", ShareOfClicks: 55, ShareOfBuy: 60, ValueScore: 4.1, Win: true},
		},
		PurchaseDrivers: []insight.PurchaseDriverRow{
			{VariantType: insight.VariantA, Value: 4.2, Aesthetics: 3.9, Confidence: 4.0, Brand: 3.1, Convenience: 4.4, Count: 31},
		},
		CompetitiveInsights: []insight.CompetitiveInsightRow{
			{Key: "c1:a", CompetitorID: "c1", VariantType: insight.VariantA, CompetitorTitle: "Rival One", Count: 25, ShareOfBuy: 25},
		},
		Comments: []insight.ShopperComment{
			{VariantType: insight.VariantA, Type: insight.CommentImprovement, Comment: "Make the handle longer.", Age: age(34), Sex: "female"},
			{VariantType: insight.VariantA, Type: insight.CommentReason, Comment: "Cheaper.", CompetitorTitle: "Rival One"},
			{VariantType: insight.VariantA, Type: insight.CommentImprovement, Comment: ""}, // demographics-only record
		},
	}
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	return f
}

func TestExportSheetsPresent(t *testing.T) {
	data, err := Export(baseAggregation())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f := openWorkbook(t, data)
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Summary Results", "Purchase Drivers", "Competitive Ratings", "Comments A"}
	for _, name := range want {
		found := false
		for _, s := range sheets {
			if s == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing sheet %q in %v", name, sheets)
		}
	}
}

func TestExportOmitsEmptySheets(t *testing.T) {
	agg := baseAggregation()
	agg.CompetitiveInsights = nil
	agg.Comments = nil

	data, err := Export(agg)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f := openWorkbook(t, data)
	defer f.Close()

	for _, s := range f.GetSheetList() {
		if s == "Competitive Ratings" || s == "Comments A" {
			t.Fatalf("zero-row sheet %q must be omitted", s)
		}
	}
}

func TestExportCompetitiveUsesReconciledShare(t *testing.T) {
	data, err := Export(baseAggregation())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f := openWorkbook(t, data)
	defer f.Close()

	share, err := f.GetCellValue("Competitive Ratings", "E2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if share != "25.0" {
		t.Fatalf("workbook must carry the reconciled share, got %q", share)
	}
}

func TestExportSummaryMatchesDocumentValues(t *testing.T) {
	// Round-trip property: the workbook shows the same one-decimal numbers
	// the document renders, because both read the same aggregation.
	data, err := Export(baseAggregation())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f := openWorkbook(t, data)
	defer f.Close()

	buy, _ := f.GetCellValue("Summary Results", "C2")
	score, _ := f.GetCellValue("Summary Results", "D2")
	win, _ := f.GetCellValue("Summary Results", "E2")
	if buy != "60.0" || score != "4.1" || win != "Yes" {
		t.Fatalf("summary values drifted: buy=%q score=%q win=%q", buy, score, win)
	}
}

func TestExportCommentsMergeTypes(t *testing.T) {
	data, err := Export(baseAggregation())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f := openWorkbook(t, data)
	defer f.Close()

	rows, err := f.GetRows("Comments A")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	// Header plus the two non-blank comments; the demographics-only record
	// is excluded from the sheet.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "Comment Type" {
		t.Fatalf("discriminator column missing: %v", rows[0])
	}
	if rows[1][0] != string(insight.CommentImprovement) || rows[2][0] != string(insight.CommentReason) {
		t.Fatalf("comment types not merged: %v / %v", rows[1], rows[2])
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(insight.SkinWalmart, "Spring Test"); got != "Walmart_Spring_Test_export.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
	if got := FileName(insight.SkinAmazon, "Spring Test"); got != "Amazon_Spring_Test_export.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
}
