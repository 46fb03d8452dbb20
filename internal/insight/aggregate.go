package insight

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("shelftest/insight")

// ResultStore is the read surface the aggregation service consumes. The
// sqlite implementation lives in internal/store.
type ResultStore interface {
	GetTest(ctx context.Context, testID string) (Test, error)
	GetVariants(ctx context.Context, testID string) ([]Variant, error)
	GetSummary(ctx context.Context, testID string) ([]SummaryRow, error)
	GetPurchaseDrivers(ctx context.Context, testID string) ([]PurchaseDriverRow, error)
	GetCompetitiveInsights(ctx context.Context, testID string) ([]CompetitiveInsightRow, error)
	GetAIInsight(ctx context.Context, testID string) (*AIInsight, error)
	GetComments(ctx context.Context, testID string, skin Skin) ([]ShopperComment, error)
}

type Service struct {
	store ResultStore
}

func NewService(store ResultStore) *Service {
	return &Service{store: store}
}

// Aggregate fetches every result collection for a test, reconciles the
// competitive shares against the summary, and returns the one result set all
// consumers read. The five collection reads are independent and fan out
// concurrently; nothing downstream recomputes any of these numbers.
func (s *Service) Aggregate(ctx context.Context, testID string) (*Aggregation, error) {
	ctx, span := tracer.Start(ctx, "insight.Aggregate")
	span.SetAttributes(attribute.String("test.id", testID))
	defer span.End()

	start := time.Now()
	test, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test %s: %w", testID, err)
	}
	variants, err := s.store.GetVariants(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get variants %s: %w", testID, err)
	}

	agg := &Aggregation{Test: test, Variants: variants}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.GetSummary(gctx, testID)
		if err != nil {
			return fmt.Errorf("get summary: %w", err)
		}
		agg.Summary = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.GetPurchaseDrivers(gctx, testID)
		if err != nil {
			return fmt.Errorf("get purchase drivers: %w", err)
		}
		agg.PurchaseDrivers = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.GetCompetitiveInsights(gctx, testID)
		if err != nil {
			return fmt.Errorf("get competitive insights: %w", err)
		}
		agg.CompetitiveInsights = rows
		return nil
	})
	g.Go(func() error {
		ai, err := s.store.GetAIInsight(gctx, testID)
		if err != nil {
			return fmt.Errorf("get ai insight: %w", err)
		}
		agg.AIInsight = ai
		return nil
	})
	g.Go(func() error {
		comments, err := s.store.GetComments(gctx, testID, test.Skin)
		if err != nil {
			return fmt.Errorf("get comments: %w", err)
		}
		agg.Comments = comments
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	normalize(agg)
	agg.LoadedAt = time.Now()
	log.Printf("insight aggregate_done test=%s variants=%d summary=%d competitive=%d elapsed_ms=%d",
		testID, len(agg.Variants), len(agg.Summary), len(agg.CompetitiveInsights), time.Since(start).Milliseconds())
	return agg, nil
}

// normalize applies the pure mappings: summary labels, defaulted driver rows,
// and the competitive-share reconciliation.
func normalize(agg *Aggregation) {
	for i := range agg.Summary {
		r := &agg.Summary[i]
		if r.VariantTitle == "" {
			r.VariantTitle = agg.VariantTitle(r.VariantType)
		}
		r.Label = fmt.Sprintf("Variant %s - %s", r.VariantType.Label(), r.VariantTitle)
	}

	// A variant with no observations still gets a zeroed driver row so the
	// low-confidence state is visible instead of silently missing.
	for _, vt := range agg.AvailableVariants() {
		if _, ok := agg.DriversFor(vt); !ok {
			agg.PurchaseDrivers = append(agg.PurchaseDrivers, PurchaseDriverRow{VariantType: vt, Defaulted: true})
		}
	}

	groups := ReconcileShares(agg.CompetitiveInsights, agg.Summary)
	agg.CompetitiveInsights = FlattenGroups(groups)
}
