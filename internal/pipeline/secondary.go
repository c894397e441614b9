package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/model"
)

const secondaryMaxTokens = 2048

// RunSecondary performs the deep-dive market and persona analysis over the
// full extraction snapshot plus caller-supplied question/answer pairs. The
// pairs are free-form and need not match persisted questions. Each run
// overwrites the record's single secondary slot.
func (p *Pipeline) RunSecondary(ctx context.Context, analysisID string, pairs []model.QAPair, modelOverride string) (*model.SecondaryAnalysis, error) {
	rec, err := p.loadCompletedAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, apperr.Validation("", "at least one question/answer pair is required")
	}

	snapshot, err := json.MarshalIndent(rec.Sections, "", "  ")
	if err != nil {
		return nil, apperr.Persistence("marshal extraction snapshot", err)
	}

	var qa strings.Builder
	for i, pair := range pairs {
		fmt.Fprintf(&qa, "Q%d: %s\nA%d: %s\n\n", i+1, pair.Question, i+1, pair.Answer)
	}

	modelID := p.model(modelOverride)
	resp, err := p.callEngine(ctx, "secondary", modelID, secondarySystem,
		fmt.Sprintf(secondaryPrompt, string(snapshot), strings.TrimRight(qa.String(), "\n")),
		secondaryMaxTokens)
	if err != nil {
		return nil, err
	}

	sec := parseSecondary(resp.Text())
	sec.Model = modelID
	sec.GeneratedAt = time.Now().UTC()

	if err := p.store.SetSecondaryAnalysis(ctx, analysisID, sec); err != nil {
		return nil, apperr.Persistence("set secondary analysis", err)
	}

	zap.L().Info("secondary analysis completed",
		zap.String("analysis_id", analysisID),
		zap.Int("market_insights", len(sec.MarketInsights)),
		zap.Int("persona_insights", len(sec.PersonaInsights)),
		zap.Bool("degraded", sec.Degraded),
	)
	return sec, nil
}

// parseSecondary decodes the two insight blocks. A malformed response
// produces a degraded record that embeds the raw text instead of failing
// the run.
func parseSecondary(text string) *model.SecondaryAnalysis {
	cleaned := cleanJSON(text)

	var payload struct {
		MarketInsights  []string `json:"market_research_insights"`
		PersonaInsights []string `json:"persona_insights"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil ||
		(len(payload.MarketInsights) == 0 && len(payload.PersonaInsights) == 0) {
		zap.L().Warn("secondary: unparseable engine output, keeping raw response")
		return &model.SecondaryAnalysis{
			Degraded:    true,
			RawResponse: text,
		}
	}

	return &model.SecondaryAnalysis{
		MarketInsights:  payload.MarketInsights,
		PersonaInsights: payload.PersonaInsights,
	}
}
