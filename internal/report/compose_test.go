package report

import (
	"reflect"
	"testing"

	"github.com/shelftest/shelftest/internal/insight"
)

func baseAggregation() *insight.Aggregation {
	return &insight.Aggregation{
		Test: insight.Test{ID: "t1", Name: "Spatula Test", Skin: insight.SkinAmazon, Status: insight.StatusComplete},
		Variants: []insight.Variant{
			{TestID: "t1", VariantType: insight.VariantA, Title: "Red Spatula", Price: 12.99},
			{TestID: "t1", VariantType: insight.VariantB, Title: "Blue Spatula", Price: 13.99},
		},
		Summary: []insight.SummaryRow{
			{VariantType: insight.VariantA, Label: "Variant A - Red Spatula", ShareOfBuy: 60, ShareOfClicks: 55, ValueScore: 4.1, Win: true},
			{VariantType: insight.VariantB, Label: "Variant B - Blue Spatula", ShareOfBuy: 40, ShareOfClicks: 45, ValueScore: 3.2},
		},
		PurchaseDrivers: []insight.PurchaseDriverRow{
			{VariantType: insight.VariantA, Value: 4.2, Aesthetics: 3.9, Confidence: 4.0, Brand: 3.1, Convenience: 4.4, Count: 31},
			{VariantType: insight.VariantB, Defaulted: true},
		},
		CompetitiveInsights: []insight.CompetitiveInsightRow{
			{Key: "c1:a", CompetitorID: "c1", VariantType: insight.VariantA, CompetitorTitle: "Rival One", Count: 25, ShareOfBuy: 25},
		},
	}
}

func sectionKinds(sections []Section) []SectionKind {
	kinds := make([]SectionKind, len(sections))
	for i, s := range sections {
		kinds[i] = s.Kind
	}
	return kinds
}

func TestComposeSectionOrder(t *testing.T) {
	agg := baseAggregation()
	agg.AIInsight = &insight.AIInsight{
		PurchaseDrivers:     "Drivers narrative.",
		CompetitiveInsightA: "A held its ground.",
		Recommendations:     "Ship A.",
	}

	got := sectionKinds(Compose(agg))
	want := []SectionKind{
		SectionCover, SectionTestDesign, SectionSummaryTable,
		SectionDriversNarrative, SectionDriversChart,
		SectionCompetitiveNarrative, SectionCompetitiveTable,
		SectionRecommendations,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("section order mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestComposeExcludesVariantWithoutData(t *testing.T) {
	// Variant b is structurally valid (titled, priced) but has only a
	// defaulted driver row, no competitive rows, and no narrative.
	agg := baseAggregation()
	sections := Compose(agg)

	for _, s := range sections {
		if s.Kind == SectionSummaryTable {
			if len(s.SummaryRows) != 1 || s.SummaryRows[0].VariantType != insight.VariantA {
				t.Fatalf("variant b should be excluded from the summary table: %+v", s.SummaryRows)
			}
		}
		if s.Kind == SectionCompetitiveTable && s.VariantType == insight.VariantB {
			t.Fatal("variant b should have no competitive table")
		}
	}
}

func TestComposeNarrativeOnlyVariantIncluded(t *testing.T) {
	// Variant b has no rows of any kind, but a non-empty narrative under
	// its key pulls it into the document -- with no table.
	agg := baseAggregation()
	agg.AIInsight = &insight.AIInsight{CompetitiveInsightB: "Shoppers compared b favorably."}

	included := IncludedVariants(agg)
	if len(included) != 2 || included[1] != insight.VariantB {
		t.Fatalf("narrative alone should include variant b, got %v", included)
	}
	for _, s := range Compose(agg) {
		if s.Kind == SectionCompetitiveTable && s.VariantType == insight.VariantB {
			t.Fatal("variant b has no competitive rows, so no table")
		}
	}
}

func TestComposeIdempotent(t *testing.T) {
	agg := baseAggregation()
	agg.AIInsight = &insight.AIInsight{CompetitiveInsightA: "A text."}

	first := IncludedVariants(agg)
	second := IncludedVariants(agg)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("inclusion must be idempotent: %v vs %v", first, second)
	}

	// Adding a narrative for b flips only b.
	agg.AIInsight.CompetitiveInsightB = "New b narrative."
	third := IncludedVariants(agg)
	if len(third) != len(first)+1 {
		t.Fatalf("expected exactly one more included variant, got %v", third)
	}
	if third[0] != insight.VariantA {
		t.Fatalf("variant a inclusion must be unaffected, got %v", third)
	}
}

func TestComposeMissingTestYieldsErrorDocument(t *testing.T) {
	sections := Compose(nil)
	if len(sections) != 1 || sections[0].Kind != SectionError {
		t.Fatalf("expected single error section, got %v", sectionKinds(sections))
	}
	if sections[0].ErrorReason == "" {
		t.Fatal("error section must state the failure reason")
	}
}

func TestComposeMissingSummaryYieldsErrorDocument(t *testing.T) {
	agg := baseAggregation()
	agg.Summary = nil
	sections := Compose(agg)
	if len(sections) != 1 || sections[0].Kind != SectionError {
		t.Fatalf("expected single error section, got %v", sectionKinds(sections))
	}
}

func TestComposeSuppressesEmptyRecommendations(t *testing.T) {
	agg := baseAggregation()
	agg.AIInsight = &insight.AIInsight{Recommendations: "null", CompetitiveInsightA: "A text."}
	for _, s := range Compose(agg) {
		if s.Kind == SectionRecommendations {
			t.Fatal("null-equivalent recommendations must be suppressed")
		}
	}
}

func TestComposeCombinedChartSpansIncludedVariants(t *testing.T) {
	agg := baseAggregation()
	agg.AIInsight = &insight.AIInsight{CompetitiveInsightB: "b narrative"}

	var chart *Section
	for _, s := range Compose(agg) {
		if s.Kind == SectionDriversChart {
			c := s
			chart = &c
		}
	}
	if chart == nil {
		t.Fatal("expected a drivers chart section")
	}
	if len(chart.DriverRows) != 2 {
		t.Fatalf("one combined chart spanning both included variants, got %d rows", len(chart.DriverRows))
	}
}
