package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/shelftest/shelftest/internal/insight"
)

// FileName follows the export contract:
// <Amazon|Walmart>_<sanitized test name>_export.xlsx.
func FileName(skin insight.Skin, testName string) string {
	storefront := "Amazon"
	if skin == insight.SkinWalmart {
		storefront = "Walmart"
	}
	return fmt.Sprintf("%s_%s_export.xlsx", storefront, insight.SanitizeFileName(testName))
}

// Export converts an aggregation into a multi-sheet workbook. Sheets with
// zero rows are omitted entirely, never emitted empty. Competitive shares
// come straight from the reconciled aggregation so the workbook and the
// document always show the same numbers.
func Export(agg *insight.Aggregation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	wrote := false
	if len(agg.Summary) > 0 {
		if err := writeSummarySheet(f, agg); err != nil {
			return nil, err
		}
		wrote = true
	}
	if rows := realDriverRows(agg); len(rows) > 0 {
		if err := writeDriversSheet(f, rows); err != nil {
			return nil, err
		}
		wrote = true
	}
	if len(agg.CompetitiveInsights) > 0 {
		if err := writeCompetitiveSheet(f, agg); err != nil {
			return nil, err
		}
		wrote = true
	}
	for _, vt := range insight.VariantTypes {
		comments := commentRows(agg, vt)
		if len(comments) == 0 {
			continue
		}
		if err := writeCommentsSheet(f, vt, comments); err != nil {
			return nil, err
		}
		wrote = true
	}

	if wrote {
		// Drop the default sheet excelize creates.
		f.DeleteSheet("Sheet1")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func newSheet(f *excelize.File, name string, header []string) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %s: %w", name, err)
	}
	return writeRow(f, name, 1, toAny(header))
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %s!%d: %w", sheet, row, err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, agg *insight.Aggregation) error {
	const sheet = "Summary Results"
	if err := newSheet(f, sheet, []string{"Product", "Share of Clicks (%)", "Share of Buy (%)", "Value Score", "Win"}); err != nil {
		return err
	}
	for i, r := range agg.Summary {
		row := []any{r.Label, oneDecimal(r.ShareOfClicks), oneDecimal(r.ShareOfBuy), oneDecimal(r.ValueScore), r.WinText()}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func realDriverRows(agg *insight.Aggregation) []insight.PurchaseDriverRow {
	var out []insight.PurchaseDriverRow
	for _, r := range agg.PurchaseDrivers {
		if !r.Defaulted {
			out = append(out, r)
		}
	}
	return out
}

func writeDriversSheet(f *excelize.File, rows []insight.PurchaseDriverRow) error {
	const sheet = "Purchase Drivers"
	if err := newSheet(f, sheet, []string{"Variant", "Value", "Aesthetics", "Trust", "Brand", "Convenience", "Responses", "Low Confidence"}); err != nil {
		return err
	}
	for i, r := range rows {
		lowConfidence := "No"
		if r.LowConfidence() {
			lowConfidence = "Yes"
		}
		row := []any{
			r.VariantType.Label(),
			oneDecimal(r.Value), oneDecimal(r.Aesthetics), oneDecimal(r.Confidence),
			oneDecimal(r.Brand), oneDecimal(r.Convenience),
			r.Count, lowConfidence,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeCompetitiveSheet(f *excelize.File, agg *insight.Aggregation) error {
	const sheet = "Competitive Ratings"
	if err := newSheet(f, sheet, []string{"Variant", "Competitor", "Price", "Times Chosen", "Share of Buy (%)"}); err != nil {
		return err
	}
	for i, r := range agg.CompetitiveInsights {
		row := []any{r.VariantType.Label(), r.CompetitorTitle, r.Price, r.Count, oneDecimal(r.ShareOfBuy)}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// commentRows merges both buyer comment types into one flat table per
// variant, skipping blank comments.
func commentRows(agg *insight.Aggregation, vt insight.VariantType) []insight.ShopperComment {
	var out []insight.ShopperComment
	for _, c := range agg.CommentsFor(vt) {
		if c.Comment != "" {
			out = append(out, c)
		}
	}
	return out
}

func writeCommentsSheet(f *excelize.File, vt insight.VariantType, comments []insight.ShopperComment) error {
	sheet := "Comments " + vt.Label()
	if err := newSheet(f, sheet, []string{"Comment Type", "Comment", "Competitor", "Age", "Sex", "Country"}); err != nil {
		return err
	}
	for i, c := range comments {
		age := any("")
		if c.Age != nil {
			age = *c.Age
		}
		row := []any{string(c.Type), c.Comment, c.CompetitorTitle, age, c.Sex, c.Country}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func oneDecimal(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
