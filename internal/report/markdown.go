package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shelftest/shelftest/internal/insight"
)

// BuildDocumentMarkdown renders the composed sections into the single
// markdown document the PDF renderer consumes. Numeric formatting here must
// match the spreadsheet exporter: one decimal place for percentages and
// scores, straight from the aggregation.
func BuildDocumentMarkdown(agg *insight.Aggregation, sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		switch s.Kind {
		case SectionError:
			buildErrorPage(&b, s)
		case SectionCover:
			buildCover(&b, agg)
		case SectionTestDesign:
			buildTestDesign(&b, agg, s)
		case SectionSummaryTable:
			buildSummaryTable(&b, s)
		case SectionDriversNarrative, SectionCompetitiveNarrative, SectionRecommendations:
			buildNarrative(&b, s)
		case SectionDriversChart:
			buildDriversChart(&b, s)
		case SectionCompetitiveTable:
			buildCompetitiveTable(&b, s)
		}
	}
	return b.String()
}

func buildErrorPage(b *strings.Builder, s Section) {
	fmt.Fprintf(b, "# %s\n\n", s.Title)
	fmt.Fprintf(b, "%s\n\n", safe(s.ErrorReason))
}

func buildCover(b *strings.Builder, agg *insight.Aggregation) {
	fmt.Fprintf(b, "# %s\n\n", safe(agg.Test.Name))
	fmt.Fprintf(b, "- Storefront: %s\n", skinName(agg.Test.Skin))
	fmt.Fprintf(b, "- Search term: %s\n", safe(agg.Test.SearchTerm))
	if !agg.Test.CreatedAt.IsZero() {
		fmt.Fprintf(b, "- Created: %s\n", agg.Test.CreatedAt.Format("January 2, 2006"))
	}
	fmt.Fprintf(b, "- Generated: %s\n\n", time.Now().Format(time.RFC3339))
}

func buildTestDesign(b *strings.Builder, agg *insight.Aggregation, s Section) {
	fmt.Fprintf(b, "## %s\n\n", s.Title)
	fmt.Fprintf(b, "### Tested Products\n\n")
	for _, v := range agg.Variants {
		if v.Title == "" {
			continue
		}
		fmt.Fprintf(b, "- Variant %s: %s ($%.2f)\n", v.VariantType.Label(), safe(v.Title), v.Price)
	}
	b.WriteString("\n")
	buildChart(b, "Age Distribution", s.AgeChart)
	buildChart(b, "Gender Distribution", s.GenderChart)
}

func buildChart(b *strings.Builder, title string, buckets []ChartBucket) {
	if len(buckets) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	fmt.Fprintf(b, "| Group | Respondents |\n|---|---:|\n")
	for _, bucket := range buckets {
		fmt.Fprintf(b, "| %s | %d |\n", safe(bucket.Label), bucket.Count)
	}
	b.WriteString("\n")
}

func buildSummaryTable(b *strings.Builder, s Section) {
	fmt.Fprintf(b, "## %s\n\n", s.Title)
	if len(s.SummaryRows) == 0 {
		fmt.Fprintf(b, "No summary rows available.\n\n")
		return
	}
	fmt.Fprintf(b, "| Product | Share of Clicks | Share of Buy | Value Score | Win |\n|---|---:|---:|---:|---|\n")
	for _, r := range s.SummaryRows {
		fmt.Fprintf(b, "| %s | %.1f%% | %.1f%% | %.1f | %s |\n",
			safe(r.Label), r.ShareOfClicks, r.ShareOfBuy, r.ValueScore, r.WinText())
	}
	b.WriteString("\n")
}

func buildNarrative(b *strings.Builder, s Section) {
	fmt.Fprintf(b, "## %s\n\n", s.Title)
	fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(s.Narrative))
}

func buildDriversChart(b *strings.Builder, s Section) {
	fmt.Fprintf(b, "## %s\n\n", s.Title)
	fmt.Fprintf(b, "| Variant | Value | Aesthetics | Trust | Brand | Convenience | Responses |\n|---|---:|---:|---:|---:|---:|---:|\n")
	for _, r := range s.DriverRows {
		fmt.Fprintf(b, "| %s | %.1f | %.1f | %.1f | %.1f | %.1f | %d |\n",
			r.VariantType.Label(), r.Value, r.Aesthetics, r.Confidence, r.Brand, r.Convenience, r.Count)
	}
	b.WriteString("\n")
	for _, r := range s.DriverRows {
		if r.LowConfidence() {
			fmt.Fprintf(b, "> Low confidence: variant %s has %d purchase-driver response(s).\n\n",
				r.VariantType.Label(), r.Count)
		}
	}
}

func buildCompetitiveTable(b *strings.Builder, s Section) {
	fmt.Fprintf(b, "## %s\n\n", s.Title)
	fmt.Fprintf(b, "| Competitor | Price | Times Chosen | Share of Buy |\n|---|---:|---:|---:|\n")
	for _, r := range s.CompetitiveRows {
		fmt.Fprintf(b, "| %s | $%.2f | %d | %.1f%% |\n",
			safe(r.CompetitorTitle), r.Price, r.Count, r.ShareOfBuy)
	}
	b.WriteString("\n")
}

func skinName(s insight.Skin) string {
	if s == insight.SkinWalmart {
		return "Walmart"
	}
	return "Amazon"
}

func safe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
