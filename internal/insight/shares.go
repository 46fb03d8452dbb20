package insight

import (
	"math"
	"sort"
)

const (
	// Share-of-buy thresholds for the back-solve. The clamps avoid division
	// blow-up at the top end and erasure of the variant at the bottom end.
	dominantShareThreshold   = 99.5
	negligibleShareThreshold = 0.5
	// Synthetic selection floor for the dominant branch, so the variant's
	// rank stays unambiguous even with very few competitor selections.
	dominantSelectionFloor = 1000
)

// ShareGroup is the reconciled result for one variant: its competitor rows
// with recomputed shares plus the implied test-product share.
type ShareGroup struct {
	VariantType           VariantType
	Rows                  []CompetitiveInsightRow
	TestProductSelections int
	TotalSelections       int
	TestProductShare      float64
}

// ReconcileShares recomputes competitor share-of-buy per variant so that the
// competitor shares plus the implied test-product share sum to 100%.
//
// The raw rows only record how many times each competitor beat the variant;
// the variant's own selection count is back-solved from its summary
// share-of-buy percentage. Rows come back ordered ascending by variant slot,
// then descending by recomputed share within each slot.
func ReconcileShares(rows []CompetitiveInsightRow, summary []SummaryRow) []ShareGroup {
	byVariant := map[VariantType][]CompetitiveInsightRow{}
	for _, r := range rows {
		r.Key = compositeKey(r.CompetitorID, r.VariantType)
		byVariant[r.VariantType] = append(byVariant[r.VariantType], r)
	}

	shareFor := map[VariantType]float64{}
	for _, s := range summary {
		shareFor[s.VariantType] = s.ShareOfBuy
	}

	var groups []ShareGroup
	for _, vt := range VariantTypes {
		vrows, ok := byVariant[vt]
		if !ok {
			continue
		}
		groups = append(groups, reconcileVariant(vt, vrows, shareFor[vt]))
	}
	return groups
}

func reconcileVariant(vt VariantType, rows []CompetitiveInsightRow, p float64) ShareGroup {
	competitorSelections := 0
	for _, r := range rows {
		competitorSelections += r.Count
	}

	testProductSelections := backsolveSelections(competitorSelections, p)
	total := competitorSelections + testProductSelections

	for i := range rows {
		if total == 0 {
			rows[i].ShareOfBuy = 0
			continue
		}
		rows[i].ShareOfBuy = float64(rows[i].Count) / float64(total) * 100
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ShareOfBuy > rows[j].ShareOfBuy
	})

	g := ShareGroup{
		VariantType:           vt,
		Rows:                  rows,
		TestProductSelections: testProductSelections,
		TotalSelections:       total,
	}
	if total > 0 {
		g.TestProductShare = float64(testProductSelections) / float64(total) * 100
	}
	return g
}

// backsolveSelections reconstructs the implied test-product selection count
// from the known competitor selections and the variant's share-of-buy
// percentage p (0-100). Three branches: dominant, negligible, interpolated.
func backsolveSelections(competitorSelections int, p float64) int {
	switch {
	case p >= dominantShareThreshold:
		n := competitorSelections * 100
		if n < dominantSelectionFloor {
			n = dominantSelectionFloor
		}
		return n
	case p <= negligibleShareThreshold:
		n := int(math.Round(float64(competitorSelections) * p / 100))
		if n < 1 {
			n = 1
		}
		return n
	default:
		estimatedTotal := float64(competitorSelections) / (1 - p/100)
		return int(math.Round(p / 100 * estimatedTotal))
	}
}

// compositeKey makes a competitor row identity unique per variant slot.
func compositeKey(competitorID string, vt VariantType) string {
	return competitorID + ":" + string(vt)
}

// FlattenGroups returns the reconciled rows in final presentation order.
func FlattenGroups(groups []ShareGroup) []CompetitiveInsightRow {
	var out []CompetitiveInsightRow
	for _, g := range groups {
		out = append(out, g.Rows...)
	}
	return out
}
