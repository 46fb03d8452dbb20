// Package narrative regenerates the per-test AI insight singleton. The
// trigger is fire-and-forget: callers kick off a regeneration, then do a
// full reload of the aggregation rather than patching anything in place.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shelftest/shelftest/internal/insight"
)

const DefaultModel = "claude-sonnet-4-5"

const systemPrompt = "You are a consumer-research analyst. You summarize product test results " +
	"into concise narrative insights for brand managers. You never invent numbers. Return strict JSON only."

type Caller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages Messager
	model    string
}

type ClientCreator func(apiKey string) Messager

func defaultClientCreator(apiKey string) Messager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newClient ClientCreator = defaultClientCreator

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model := strings.TrimSpace(os.Getenv("INSIGHT_LLM_MODEL"))
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicCaller{messages: newClient(apiKey), model: model}, nil
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// InsightWriter is the store surface the generator writes through.
type InsightWriter interface {
	PutAIInsight(ctx context.Context, ai insight.AIInsight) error
}

type Generator struct {
	caller Caller
	writer InsightWriter
}

func NewGenerator(caller Caller, writer InsightWriter) *Generator {
	return &Generator{caller: caller, writer: writer}
}

// Regenerate rebuilds the AI-insight singleton for a test from its current
// aggregation and upserts it. Up to three attempts; empty or invalid JSON
// responses get one corrective retry each.
func (g *Generator) Regenerate(ctx context.Context, agg *insight.Aggregation) (*insight.AIInsight, error) {
	prompt := buildPrompt(agg)
	feedback := ""
	for attempt := 1; attempt <= 3; attempt++ {
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		start := time.Now()
		raw, err := g.caller.GenerateJSON(ctx, fullPrompt)
		if err != nil {
			return nil, fmt.Errorf("narrative generation transport failure: %w", err)
		}
		clean := stripCodeFences(raw)
		if clean == "" {
			log.Printf("narrative attempt_empty test=%s attempt=%d elapsed_ms=%d", agg.Test.ID, attempt, time.Since(start).Milliseconds())
			feedback = "Your previous response was empty. Return valid JSON only."
			continue
		}

		var ai insight.AIInsight
		if err := json.Unmarshal([]byte(clean), &ai); err != nil {
			log.Printf("narrative attempt_json_error test=%s attempt=%d err=%q", agg.Test.ID, attempt, err.Error())
			feedback = "Your previous response was not valid JSON. Return valid JSON only."
			continue
		}
		ai.TestID = agg.Test.ID
		if err := g.writer.PutAIInsight(ctx, ai); err != nil {
			return nil, fmt.Errorf("persist regenerated insight: %w", err)
		}
		log.Printf("narrative regenerated test=%s attempt=%d elapsed_ms=%d", agg.Test.ID, attempt, time.Since(start).Milliseconds())
		return &ai, nil
	}
	return nil, errors.New("narrative generation failed after retries")
}

func buildPrompt(agg *insight.Aggregation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following product test into JSON with keys: comparison, purchase_drivers, competitive_insights_a, competitive_insights_b, competitive_insights_c, comment_summary, recommendations. Use \"null\" for variants without data.\n\n")
	fmt.Fprintf(&b, "Test: %s (storefront: %s)\n\n", agg.Test.Name, agg.Test.Skin)
	for _, r := range agg.Summary {
		fmt.Fprintf(&b, "Summary %s: share_of_clicks=%.1f%% share_of_buy=%.1f%% value_score=%.1f win=%s\n",
			r.Label, r.ShareOfClicks, r.ShareOfBuy, r.ValueScore, r.WinText())
	}
	for _, r := range agg.PurchaseDrivers {
		fmt.Fprintf(&b, "Drivers %s: value=%.1f aesthetics=%.1f trust=%.1f brand=%.1f convenience=%.1f n=%d\n",
			r.VariantType.Label(), r.Value, r.Aesthetics, r.Confidence, r.Brand, r.Convenience, r.Count)
	}
	for _, r := range agg.CompetitiveInsights {
		fmt.Fprintf(&b, "Competitive %s vs %s: chosen=%d share=%.1f%%\n",
			r.VariantType.Label(), r.CompetitorTitle, r.Count, r.ShareOfBuy)
	}
	for _, c := range agg.Comments {
		if c.Comment == "" {
			continue
		}
		fmt.Fprintf(&b, "Comment %s [%s]: %s\n", c.VariantType.Label(), c.Type, c.Comment)
	}
	return b.String()
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
