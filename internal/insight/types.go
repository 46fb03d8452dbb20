package insight

import (
	"fmt"
	"time"
)

type Skin string

const (
	SkinAmazon  Skin = "amazon"
	SkinWalmart Skin = "walmart"
)

type TestStatus string

const (
	StatusDraft    TestStatus = "draft"
	StatusActive   TestStatus = "active"
	StatusComplete TestStatus = "complete"
)

type VariantType string

const (
	VariantA VariantType = "a"
	VariantB VariantType = "b"
	VariantC VariantType = "c"
)

// VariantTypes is the fixed slot order for every per-variant walk.
var VariantTypes = []VariantType{VariantA, VariantB, VariantC}

func ParseVariantType(s string) (VariantType, error) {
	switch VariantType(s) {
	case VariantA, VariantB, VariantC:
		return VariantType(s), nil
	}
	return "", fmt.Errorf("invalid variant_type %q", s)
}

// Label returns the display form of the slot, e.g. "A".
func (v VariantType) Label() string {
	switch v {
	case VariantA:
		return "A"
	case VariantB:
		return "B"
	case VariantC:
		return "C"
	}
	return "?"
}

type Test struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Status     TestStatus `json:"status" db:"status"`
	SearchTerm string     `json:"search_term" db:"search_term"`
	Skin       Skin       `json:"skin" db:"skin"`
	CreatedAt  time.Time  `json:"created_at" db:"-"`

	// Coarse demographic ranges captured at creation time. Only used as a
	// chart fallback when no per-response demographics exist.
	AgeRanges    []string `json:"age_ranges" db:"-"`
	GenderGroups []string `json:"gender_groups" db:"-"`
}

type Variant struct {
	TestID      string      `json:"test_id" db:"test_id"`
	VariantType VariantType `json:"variant_type" db:"variant_type"`
	Title       string      `json:"title" db:"title"`
	ImageURL    string      `json:"image_url" db:"image_url"`
	Price       float64     `json:"price" db:"price"`
}

// Competitor identity is per-test, not global.
type Competitor struct {
	ID       string  `json:"id" db:"id"`
	TestID   string  `json:"test_id" db:"test_id"`
	Title    string  `json:"title" db:"title"`
	ImageURL string  `json:"image_url" db:"image_url"`
	Price    float64 `json:"price" db:"price"`
	URL      string  `json:"url" db:"url"`
}

type SummaryRow struct {
	VariantType   VariantType `json:"variant_type"`
	VariantTitle  string      `json:"variant_title"`
	Label         string      `json:"label"` // "Variant A - <title>"
	ShareOfClicks float64     `json:"share_of_clicks"`
	ShareOfBuy    float64     `json:"share_of_buy"`
	ValueScore    float64     `json:"value_score"`
	Win           bool        `json:"win"`
}

// WinText is the tabular form of the backend confidence flag.
func (r SummaryRow) WinText() string {
	if r.Win {
		return "Yes"
	}
	return "No"
}

type PurchaseDriverRow struct {
	VariantType VariantType `json:"variant_type"`
	Value       float64     `json:"value"`
	Aesthetics  float64     `json:"aesthetics"`
	Confidence  float64     `json:"confidence"`
	Brand       float64     `json:"brand"`
	Convenience float64     `json:"convenience"`
	Count       int         `json:"count"`
	// Defaulted marks a zero row synthesized for a variant with no fetched
	// observations. Defaulted rows render but never drive document inclusion.
	Defaulted bool `json:"-"`
}

// LowConfidence reports the degraded-observation state that downstream views
// must surface rather than hide. It also feeds the document inclusion rule.
func (r PurchaseDriverRow) LowConfidence() bool {
	return r.Count <= 1
}

type CompetitiveInsightRow struct {
	// Key is unique per (competitor, variant); the same competitor product
	// appearing under two variants must not collide.
	Key             string      `json:"key"`
	CompetitorID    string      `json:"competitor_id"`
	VariantType     VariantType `json:"variant_type"`
	CompetitorTitle string      `json:"competitor_title"`
	ImageURL        string      `json:"image_url"`
	Price           float64     `json:"price"`
	URL             string      `json:"url"`
	Count           int         `json:"count"`
	// ShareOfBuy as fetched from the store is not trustworthy; it is
	// overwritten by ReconcileShares before anything consumes it.
	ShareOfBuy float64 `json:"share_of_buy"`
}

type AIInsight struct {
	TestID              string `json:"test_id"`
	Comparison          string `json:"comparison"`
	PurchaseDrivers     string `json:"purchase_drivers"`
	CompetitiveInsightA string `json:"competitive_insights_a"`
	CompetitiveInsightB string `json:"competitive_insights_b"`
	CompetitiveInsightC string `json:"competitive_insights_c"`
	CommentSummary      string `json:"comment_summary"`
	Recommendations     string `json:"recommendations"`
}

// Competitive returns the narrative for a variant slot, or "" when absent.
func (ai *AIInsight) Competitive(v VariantType) string {
	if ai == nil {
		return ""
	}
	switch v {
	case VariantA:
		return ai.CompetitiveInsightA
	case VariantB:
		return ai.CompetitiveInsightB
	case VariantC:
		return ai.CompetitiveInsightC
	}
	return ""
}

type CommentType string

const (
	CommentImprovement CommentType = "Improvement Suggestion"
	CommentReason      CommentType = "Reason for Choosing Competitor"
)

type ShopperComment struct {
	VariantType     VariantType `json:"variant_type"`
	Type            CommentType `json:"type"`
	Comment         string      `json:"comment"`
	CompetitorTitle string      `json:"competitor_title,omitempty"`
	Age             *int        `json:"age,omitempty"`
	Sex             string      `json:"sex,omitempty"`
	Country         string      `json:"country,omitempty"`
}

// Aggregation is the single reconciled result set every consumer reads.
// The report view, the document composer, and the spreadsheet exporter must
// all present the same numbers, so none of them recompute anything here.
type Aggregation struct {
	Test                Test                    `json:"test"`
	Variants            []Variant               `json:"variants"`
	Summary             []SummaryRow            `json:"summary"`
	PurchaseDrivers     []PurchaseDriverRow     `json:"purchase_drivers"`
	CompetitiveInsights []CompetitiveInsightRow `json:"competitive_insights"`
	AIInsight           *AIInsight              `json:"ai_insight,omitempty"`
	Comments            []ShopperComment        `json:"comments"`
	LoadedAt            time.Time               `json:"loaded_at"`
}

// AvailableVariants is the subset of {a,b,c} with an assigned product.
func (a *Aggregation) AvailableVariants() []VariantType {
	out := make([]VariantType, 0, len(a.Variants))
	for _, vt := range VariantTypes {
		for _, v := range a.Variants {
			if v.VariantType == vt && v.Title != "" {
				out = append(out, vt)
				break
			}
		}
	}
	return out
}

func (a *Aggregation) VariantTitle(vt VariantType) string {
	for _, v := range a.Variants {
		if v.VariantType == vt {
			return v.Title
		}
	}
	return ""
}

func (a *Aggregation) SummaryFor(vt VariantType) (SummaryRow, bool) {
	for _, r := range a.Summary {
		if r.VariantType == vt {
			return r, true
		}
	}
	return SummaryRow{}, false
}

func (a *Aggregation) DriversFor(vt VariantType) (PurchaseDriverRow, bool) {
	for _, r := range a.PurchaseDrivers {
		if r.VariantType == vt {
			return r, true
		}
	}
	return PurchaseDriverRow{}, false
}

func (a *Aggregation) CompetitiveFor(vt VariantType) []CompetitiveInsightRow {
	var out []CompetitiveInsightRow
	for _, r := range a.CompetitiveInsights {
		if r.VariantType == vt {
			out = append(out, r)
		}
	}
	return out
}

func (a *Aggregation) CommentsFor(vt VariantType) []ShopperComment {
	var out []ShopperComment
	for _, c := range a.Comments {
		if c.VariantType == vt {
			out = append(out, c)
		}
	}
	return out
}
