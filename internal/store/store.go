package store

import (
	"context"
	"errors"

	"github.com/shelftest/shelftest/internal/insight"
)

// ErrNotFound is returned when a test id has no row.
var ErrNotFound = errors.New("not found")

// Store is the queryable result-store surface. All reads are filtered by
// test id; the comparison-comment table is selected by store skin.
type Store interface {
	insight.ResultStore

	PutTest(ctx context.Context, t insight.Test) error
	PutVariant(ctx context.Context, v insight.Variant) error
	PutCompetitor(ctx context.Context, c insight.Competitor) error
	PutSummaryRow(ctx context.Context, testID string, r insight.SummaryRow) error
	PutPurchaseDriverRow(ctx context.Context, testID string, r insight.PurchaseDriverRow) error
	PutCompetitiveInsightRow(ctx context.Context, testID string, r insight.CompetitiveInsightRow) error
	PutAIInsight(ctx context.Context, ai insight.AIInsight) error
	PutComparisonResponse(ctx context.Context, testID string, skin insight.Skin, r ComparisonResponse) error
	PutSurveyResponse(ctx context.Context, testID string, r SurveyResponse) error

	Close() error
}

// ComparisonResponse is one head-to-head decision point: the respondent
// either picked the test product (optionally leaving an improvement comment)
// or a named competitor (with a reason comment). Demographics are optional.
type ComparisonResponse struct {
	TestID          string
	VariantType     insight.VariantType
	ChoseCompetitor bool
	CompetitorTitle string
	Comment         string
	Age             *int
	Sex             string
	Country         string
}

// SurveyResponse is one purchase-driver survey row from a test-product buyer.
type SurveyResponse struct {
	TestID      string
	VariantType insight.VariantType
	Comment     string
	Age         *int
	Sex         string
	Country     string
}
