package report

import (
	"fmt"
	"log"
	"strings"

	"github.com/shelftest/shelftest/internal/insight"
)

type SectionKind string

const (
	SectionCover                SectionKind = "cover"
	SectionTestDesign           SectionKind = "test_design"
	SectionSummaryTable         SectionKind = "summary_table"
	SectionDriversNarrative     SectionKind = "drivers_narrative"
	SectionDriversChart         SectionKind = "drivers_chart"
	SectionCompetitiveNarrative SectionKind = "competitive_narrative"
	SectionCompetitiveTable     SectionKind = "competitive_table"
	SectionRecommendations      SectionKind = "recommendations"
	SectionError                SectionKind = "error"
)

// Section is one ordered block of the exported document. Only the fields
// relevant to the section kind are populated.
type Section struct {
	Kind        SectionKind         `json:"kind"`
	Title       string              `json:"title"`
	VariantType insight.VariantType `json:"variant_type,omitempty"`

	Narrative       string                          `json:"narrative,omitempty"`
	SummaryRows     []insight.SummaryRow            `json:"summary_rows,omitempty"`
	DriverRows      []insight.PurchaseDriverRow     `json:"driver_rows,omitempty"`
	CompetitiveRows []insight.CompetitiveInsightRow `json:"competitive_rows,omitempty"`
	AgeChart        []ChartBucket                   `json:"age_chart,omitempty"`
	GenderChart     []ChartBucket                   `json:"gender_chart,omitempty"`
	ErrorReason     string                          `json:"error_reason,omitempty"`
}

// Compose assembles the ordered document sections for an aggregation.
//
// Inclusion is data-driven, not structure-driven: a variant appears in
// variant-scoped sections only when it has a fetched purchase-driver row, at
// least one competitive-insight row, or a non-empty narrative under its key.
// A priced, titled variant with none of those is excluded everywhere, because
// it would otherwise produce a misleading empty-looking section.
//
// Export must always yield some artifact, so missing prerequisites and
// export-time panics both collapse to a single error section instead of an
// error return.
func Compose(agg *insight.Aggregation) (sections []Section) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("report compose_panic err=%v", r)
			sections = errorDocument(fmt.Sprintf("report generation failed: %v", r))
		}
	}()

	if agg == nil || agg.Test.ID == "" {
		return errorDocument("test details are not available")
	}
	if len(agg.Summary) == 0 {
		return errorDocument("summary data is not available for this test")
	}

	included := IncludedVariants(agg)

	sections = append(sections, Section{Kind: SectionCover, Title: agg.Test.Name})
	sections = append(sections, Section{
		Kind:        SectionTestDesign,
		Title:       "Test Design & Demographics",
		AgeChart:    AgeBuckets(agg.Comments, agg.Test.AgeRanges),
		GenderChart: GenderBuckets(agg.Comments, agg.Test.GenderGroups),
	})

	var summaryRows []insight.SummaryRow
	for _, r := range agg.Summary {
		if containsVariant(included, r.VariantType) {
			summaryRows = append(summaryRows, r)
		}
	}
	sections = append(sections, Section{Kind: SectionSummaryTable, Title: "Summary Results", SummaryRows: summaryRows})

	if agg.AIInsight != nil && insight.HasNarrative(agg.AIInsight.PurchaseDrivers) {
		sections = append(sections, Section{
			Kind:      SectionDriversNarrative,
			Title:     "Purchase Drivers",
			Narrative: agg.AIInsight.PurchaseDrivers,
		})
	}

	// One combined chart spanning all included variants, never one per
	// variant. Defaulted and low-confidence rows still contribute.
	var driverRows []insight.PurchaseDriverRow
	for _, vt := range included {
		if r, ok := agg.DriversFor(vt); ok {
			driverRows = append(driverRows, r)
		}
	}
	if len(driverRows) > 0 {
		sections = append(sections, Section{Kind: SectionDriversChart, Title: "Purchase Driver Scores", DriverRows: driverRows})
	}

	if narrative := combinedCompetitiveNarrative(agg, included); narrative != "" {
		sections = append(sections, Section{
			Kind:      SectionCompetitiveNarrative,
			Title:     "Competitive Insights",
			Narrative: narrative,
		})
	}

	for _, vt := range included {
		rows := agg.CompetitiveFor(vt)
		if len(rows) == 0 {
			continue
		}
		sections = append(sections, Section{
			Kind:            SectionCompetitiveTable,
			Title:           fmt.Sprintf("Competitive Ratings - Variant %s", vt.Label()),
			VariantType:     vt,
			CompetitiveRows: rows,
		})
	}

	if agg.AIInsight != nil && insight.HasNarrative(agg.AIInsight.Recommendations) {
		sections = append(sections, Section{
			Kind:      SectionRecommendations,
			Title:     "Recommendations",
			Narrative: agg.AIInsight.Recommendations,
		})
	}
	return sections
}

// IncludedVariants applies the data-driven inclusion rule in slot order.
func IncludedVariants(agg *insight.Aggregation) []insight.VariantType {
	var out []insight.VariantType
	for _, vt := range insight.VariantTypes {
		if variantHasData(agg, vt) {
			out = append(out, vt)
		}
	}
	return out
}

func variantHasData(agg *insight.Aggregation, vt insight.VariantType) bool {
	if r, ok := agg.DriversFor(vt); ok && !r.Defaulted {
		return true
	}
	if len(agg.CompetitiveFor(vt)) > 0 {
		return true
	}
	return agg.AIInsight != nil && insight.HasNarrative(agg.AIInsight.Competitive(vt))
}

// combinedCompetitiveNarrative aggregates the per-variant AI text for the
// included variants into one block.
func combinedCompetitiveNarrative(agg *insight.Aggregation, included []insight.VariantType) string {
	if agg.AIInsight == nil {
		return ""
	}
	var parts []string
	for _, vt := range included {
		if text := agg.AIInsight.Competitive(vt); insight.HasNarrative(text) {
			parts = append(parts, fmt.Sprintf("**Variant %s**\n\n%s", vt.Label(), text))
		}
	}
	return strings.Join(parts, "\n\n")
}

func errorDocument(reason string) []Section {
	return []Section{{Kind: SectionError, Title: "Report Unavailable", ErrorReason: reason}}
}

func containsVariant(set []insight.VariantType, vt insight.VariantType) bool {
	for _, v := range set {
		if v == vt {
			return true
		}
	}
	return false
}
