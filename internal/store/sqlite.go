package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/shelftest/shelftest/internal/insight"
)

// SQLiteStore implements Store over sqlx with write-through semantics.
// The AI-insight payload is persisted as raw JSON and normalized on read at
// this boundary, so the historical object-or-one-element-array shape never
// leaks past the store.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tests (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'draft',
	search_term   TEXT NOT NULL DEFAULT '',
	skin          TEXT NOT NULL DEFAULT 'amazon',
	age_ranges    TEXT NOT NULL DEFAULT '[]',
	gender_groups TEXT NOT NULL DEFAULT '[]',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS variants (
	test_id      TEXT NOT NULL,
	variant_type TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	price        REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (test_id, variant_type)
);

CREATE TABLE IF NOT EXISTS competitors (
	id        TEXT NOT NULL,
	test_id   TEXT NOT NULL,
	title     TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	price     REAL NOT NULL DEFAULT 0,
	url       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (test_id, id)
);

CREATE TABLE IF NOT EXISTS summary (
	test_id         TEXT NOT NULL,
	variant_type    TEXT NOT NULL,
	share_of_clicks REAL NOT NULL DEFAULT 0,
	share_of_buy    REAL NOT NULL DEFAULT 0,
	value_score     REAL NOT NULL DEFAULT 0,
	win             INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (test_id, variant_type)
);

CREATE TABLE IF NOT EXISTS purchase_drivers (
	test_id      TEXT NOT NULL,
	variant_type TEXT NOT NULL,
	value        REAL NOT NULL DEFAULT 0,
	aesthetics   REAL NOT NULL DEFAULT 0,
	confidence   REAL NOT NULL DEFAULT 0,
	brand        REAL NOT NULL DEFAULT 0,
	convenience  REAL NOT NULL DEFAULT 0,
	count        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (test_id, variant_type)
);

CREATE TABLE IF NOT EXISTS competitive_insights (
	test_id       TEXT NOT NULL,
	variant_type  TEXT NOT NULL,
	competitor_id TEXT NOT NULL,
	count         INTEGER NOT NULL DEFAULT 0,
	share_of_buy  REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (test_id, variant_type, competitor_id)
);

CREATE TABLE IF NOT EXISTS ai_insights (
	test_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS responses_comparisons (
	test_id          TEXT NOT NULL,
	variant_type     TEXT NOT NULL,
	chose_competitor INTEGER NOT NULL DEFAULT 0,
	competitor_title TEXT NOT NULL DEFAULT '',
	comment          TEXT NOT NULL DEFAULT '',
	age              INTEGER,
	sex              TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS responses_comparisons_walmart (
	test_id          TEXT NOT NULL,
	variant_type     TEXT NOT NULL,
	chose_competitor INTEGER NOT NULL DEFAULT 0,
	competitor_title TEXT NOT NULL DEFAULT '',
	comment          TEXT NOT NULL DEFAULT '',
	age              INTEGER,
	sex              TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS responses_surveys (
	test_id      TEXT NOT NULL,
	variant_type TEXT NOT NULL,
	comment      TEXT NOT NULL DEFAULT '',
	age          INTEGER,
	sex          TEXT NOT NULL DEFAULT '',
	country      TEXT NOT NULL DEFAULT ''
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- reads ---

func (s *SQLiteStore) GetTest(ctx context.Context, testID string) (insight.Test, error) {
	var t insight.Test
	var createdAt, ageRanges, genderGroups string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, status, search_term, skin, age_ranges, gender_groups, created_at FROM tests WHERE id = ?", testID).
		Scan(&t.ID, &t.Name, &t.Status, &t.SearchTerm, &t.Skin, &ageRanges, &genderGroups, &createdAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	_ = json.Unmarshal([]byte(ageRanges), &t.AgeRanges)
	_ = json.Unmarshal([]byte(genderGroups), &t.GenderGroups)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return t, nil
}

func (s *SQLiteStore) GetVariants(ctx context.Context, testID string) ([]insight.Variant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT test_id, variant_type, title, image_url, price FROM variants WHERE test_id = ? ORDER BY variant_type", testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []insight.Variant
	for rows.Next() {
		var v insight.Variant
		var vt string
		if err := rows.Scan(&v.TestID, &vt, &v.Title, &v.ImageURL, &v.Price); err != nil {
			return nil, err
		}
		parsed, err := insight.ParseVariantType(vt)
		if err != nil {
			return nil, err
		}
		v.VariantType = parsed
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetSummary(ctx context.Context, testID string) ([]insight.SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT variant_type, share_of_clicks, share_of_buy, value_score, win FROM summary WHERE test_id = ? ORDER BY variant_type", testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []insight.SummaryRow
	for rows.Next() {
		var r insight.SummaryRow
		var vt string
		var win int
		if err := rows.Scan(&vt, &r.ShareOfClicks, &r.ShareOfBuy, &r.ValueScore, &win); err != nil {
			return nil, err
		}
		parsed, err := insight.ParseVariantType(vt)
		if err != nil {
			return nil, err
		}
		r.VariantType = parsed
		r.Win = win != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetPurchaseDrivers(ctx context.Context, testID string) ([]insight.PurchaseDriverRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT variant_type, value, aesthetics, confidence, brand, convenience, count FROM purchase_drivers WHERE test_id = ? ORDER BY variant_type", testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []insight.PurchaseDriverRow
	for rows.Next() {
		var r insight.PurchaseDriverRow
		var vt string
		if err := rows.Scan(&vt, &r.Value, &r.Aesthetics, &r.Confidence, &r.Brand, &r.Convenience, &r.Count); err != nil {
			return nil, err
		}
		parsed, err := insight.ParseVariantType(vt)
		if err != nil {
			return nil, err
		}
		r.VariantType = parsed
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetCompetitiveInsights(ctx context.Context, testID string) ([]insight.CompetitiveInsightRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.variant_type, ci.competitor_id, ci.count, ci.share_of_buy,
		       c.title, c.image_url, c.price, c.url
		FROM competitive_insights ci
		LEFT JOIN competitors c ON c.test_id = ci.test_id AND c.id = ci.competitor_id
		WHERE ci.test_id = ?
		ORDER BY ci.variant_type, ci.competitor_id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []insight.CompetitiveInsightRow
	for rows.Next() {
		var r insight.CompetitiveInsightRow
		var vt string
		var title, imageURL, url sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&vt, &r.CompetitorID, &r.Count, &r.ShareOfBuy, &title, &imageURL, &price, &url); err != nil {
			return nil, err
		}
		parsed, err := insight.ParseVariantType(vt)
		if err != nil {
			return nil, err
		}
		r.VariantType = parsed
		r.CompetitorTitle = title.String
		r.ImageURL = imageURL.String
		r.Price = price.Float64
		r.URL = url.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetAIInsight(ctx context.Context, testID string) (*insight.AIInsight, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM ai_insights WHERE test_id = ?", testID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return insight.DecodeInsightPayload(testID, []byte(payload))
}

func comparisonsTable(skin insight.Skin) string {
	if skin == insight.SkinWalmart {
		return "responses_comparisons_walmart"
	}
	return "responses_comparisons"
}

// GetComments merges the two comment collections into one respondent-record
// stream: competitor buyers from the skin-selected comparisons table, test
// product buyers from the surveys table. Rows with blank comments are kept;
// their demographics still feed the charts.
func (s *SQLiteStore) GetComments(ctx context.Context, testID string, skin insight.Skin) ([]insight.ShopperComment, error) {
	var out []insight.ShopperComment

	rows, err := s.db.QueryContext(ctx,
		"SELECT variant_type, chose_competitor, competitor_title, comment, age, sex, country FROM "+comparisonsTable(skin)+" WHERE test_id = ?", testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var vt, competitorTitle, comment, sex, country string
		var choseCompetitor int
		var age sql.NullInt64
		if err := rows.Scan(&vt, &choseCompetitor, &competitorTitle, &comment, &age, &sex, &country); err != nil {
			return nil, err
		}
		parsed, err := insight.ParseVariantType(vt)
		if err != nil {
			return nil, err
		}
		c := insight.ShopperComment{
			VariantType: parsed,
			Comment:     strings.TrimSpace(comment),
			Sex:         sex,
			Country:     country,
		}
		if choseCompetitor != 0 {
			c.Type = insight.CommentReason
			c.CompetitorTitle = competitorTitle
		} else {
			c.Type = insight.CommentImprovement
		}
		if age.Valid {
			v := int(age.Int64)
			c.Age = &v
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := s.db.QueryContext(ctx,
		"SELECT variant_type, comment, age, sex, country FROM responses_surveys WHERE test_id = ?", testID)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var vt, comment, sex, country string
		var age sql.NullInt64
		if err := srows.Scan(&vt, &comment, &age, &sex, &country); err != nil {
			return nil, err
		}
		parsed, err := insight.ParseVariantType(vt)
		if err != nil {
			return nil, err
		}
		c := insight.ShopperComment{
			VariantType: parsed,
			Type:        insight.CommentImprovement,
			Comment:     strings.TrimSpace(comment),
			Sex:         sex,
			Country:     country,
		}
		if age.Valid {
			v := int(age.Int64)
			c.Age = &v
		}
		out = append(out, c)
	}
	return out, srows.Err()
}

// --- writes ---

func (s *SQLiteStore) PutTest(ctx context.Context, t insight.Test) error {
	if t.Skin == "" {
		t.Skin = insight.SkinAmazon
	}
	if t.Status == "" {
		t.Status = insight.StatusDraft
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO tests (id, name, status, search_term, skin, age_ranges, gender_groups, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, string(t.Status), t.SearchTerm, string(t.Skin),
		marshalJSON(t.AgeRanges), marshalJSON(t.GenderGroups),
		t.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) PutVariant(ctx context.Context, v insight.Variant) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO variants (test_id, variant_type, title, image_url, price)
		VALUES (?, ?, ?, ?, ?)`,
		v.TestID, string(v.VariantType), v.Title, v.ImageURL, v.Price)
	return err
}

func (s *SQLiteStore) PutCompetitor(ctx context.Context, c insight.Competitor) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO competitors (id, test_id, title, image_url, price, url)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TestID, c.Title, c.ImageURL, c.Price, c.URL)
	return err
}

func (s *SQLiteStore) PutSummaryRow(ctx context.Context, testID string, r insight.SummaryRow) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO summary (test_id, variant_type, share_of_clicks, share_of_buy, value_score, win)
		VALUES (?, ?, ?, ?, ?, ?)`,
		testID, string(r.VariantType), r.ShareOfClicks, r.ShareOfBuy, r.ValueScore, boolToInt(r.Win))
	return err
}

func (s *SQLiteStore) PutPurchaseDriverRow(ctx context.Context, testID string, r insight.PurchaseDriverRow) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO purchase_drivers (test_id, variant_type, value, aesthetics, confidence, brand, convenience, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		testID, string(r.VariantType), r.Value, r.Aesthetics, r.Confidence, r.Brand, r.Convenience, r.Count)
	return err
}

func (s *SQLiteStore) PutCompetitiveInsightRow(ctx context.Context, testID string, r insight.CompetitiveInsightRow) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO competitive_insights (test_id, variant_type, competitor_id, count, share_of_buy)
		VALUES (?, ?, ?, ?, ?)`,
		testID, string(r.VariantType), r.CompetitorID, r.Count, r.ShareOfBuy)
	return err
}

func (s *SQLiteStore) PutAIInsight(ctx context.Context, ai insight.AIInsight) error {
	payload, err := json.Marshal(ai)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO ai_insights (test_id, payload) VALUES (?, ?)`,
		ai.TestID, string(payload))
	return err
}

func (s *SQLiteStore) PutComparisonResponse(ctx context.Context, testID string, skin insight.Skin, r ComparisonResponse) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO `+comparisonsTable(skin)+` (test_id, variant_type, chose_competitor, competitor_title, comment, age, sex, country)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		testID, string(r.VariantType), boolToInt(r.ChoseCompetitor), r.CompetitorTitle, r.Comment, nullableInt(r.Age), r.Sex, r.Country)
	return err
}

func (s *SQLiteStore) PutSurveyResponse(ctx context.Context, testID string, r SurveyResponse) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO responses_surveys (test_id, variant_type, comment, age, sex, country)
		VALUES (?, ?, ?, ?, ?, ?)`,
		testID, string(r.VariantType), r.Comment, nullableInt(r.Age), r.Sex, r.Country)
	return err
}

func marshalJSON(v any) string {
	if v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// Ensure SQLiteStore satisfies the Store interface at compile time.
var _ Store = (*SQLiteStore)(nil)
