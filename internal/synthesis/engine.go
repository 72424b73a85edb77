// Package synthesis is the contract boundary to the reasoning engine.
// It sends aggregated market payloads with explicit numeric guidance and
// validates the returned shape before anything downstream trusts it.
// Unlike the data-gathering branches, a failure here is fatal.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/pkg/anthropic"
)

const (
	defaultMaxTokens = 8192

	stageAnalysis = "analysis"
	stagePlan     = "plan"
)

// Engine invokes the reasoning engine for analysis and plan synthesis.
type Engine struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithMaxTokens overrides the response token ceiling.
func WithMaxTokens(n int64) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// NewEngine creates a synthesis engine over an Anthropic client.
func NewEngine(client anthropic.Client, model string, opts ...EngineOption) *Engine {
	e := &Engine{client: client, model: model, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analysis synthesizes a market analysis from the aggregated payload.
// The returned result has no ID, account, sources, or timestamp; the
// orchestrator owns those fields.
func (e *Engine) Analysis(ctx context.Context, in AnalysisInput) (*model.MarketAnalysisResult, error) {
	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "synthesis: marshal analysis payload")
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System: []anthropic.SystemBlock{
			{Text: analysisSystemPrompt, CacheControl: &anthropic.CacheControl{}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(analysisUserPrompt, payload)},
		},
	})
	if err != nil {
		return nil, &model.SynthesisError{Stage: stageAnalysis, Err: err}
	}
	resp.Usage.LogCost(e.model, stageAnalysis)

	var result model.MarketAnalysisResult
	if err := decodeStrict(resp.Text(), &result); err != nil {
		return nil, &model.SynthesisError{Stage: stageAnalysis, Err: err}
	}
	if err := validateAnalysis(&result, in); err != nil {
		return nil, &model.SynthesisError{Stage: stageAnalysis, Err: err}
	}
	return &result, nil
}

// Plan synthesizes a campaign plan from a reduced analysis plus the
// user's selections. ID, account, analysis reference, and timestamp are
// the planner's to fill.
func (e *Engine) Plan(ctx context.Context, in PlanInput) (*model.CampaignPlan, error) {
	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "synthesis: marshal plan payload")
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System: []anthropic.SystemBlock{
			{Text: planSystemPrompt, CacheControl: &anthropic.CacheControl{}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(planUserPrompt, payload)},
		},
	})
	if err != nil {
		return nil, &model.SynthesisError{Stage: stagePlan, Err: err}
	}
	resp.Usage.LogCost(e.model, stagePlan)

	var plan model.CampaignPlan
	if err := decodeStrict(resp.Text(), &plan); err != nil {
		return nil, &model.SynthesisError{Stage: stagePlan, Err: err}
	}
	if err := validatePlan(&plan, in); err != nil {
		return nil, &model.SynthesisError{Stage: stagePlan, Err: err}
	}
	return &plan, nil
}

// decodeStrict strips fences then unmarshals, rejecting empty output.
func decodeStrict(text string, out any) error {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return eris.New("empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return eris.Wrap(err, "parse response json")
	}
	return nil
}

func validTier(t model.CompetitionTier) bool {
	switch t {
	case model.CompetitionLow, model.CompetitionMedium, model.CompetitionHigh:
		return true
	}
	return false
}

// validateAnalysis enforces the response-shape contract: every requested
// service gets an opportunity, tiers are legal values, and — when the
// keyword data was estimated rather than authoritative — monetary fields
// stay inside the grounded envelope or at zero.
func validateAnalysis(r *model.MarketAnalysisResult, in AnalysisInput) error {
	if strings.TrimSpace(r.Overview.Summary) == "" {
		return eris.New("missing overview summary")
	}
	if !validTier(r.Overview.CompetitionTier) {
		return eris.Errorf("invalid competition tier %q", r.Overview.CompetitionTier)
	}
	if len(r.Opportunities) == 0 {
		return eris.New("no service opportunities")
	}

	byService := make(map[string]bool, len(r.Opportunities))
	for i := range r.Opportunities {
		op := &r.Opportunities[i]
		if !validTier(op.Competition) {
			return eris.Errorf("opportunity %q: invalid competition tier %q", op.Service, op.Competition)
		}
		if op.MonthlyVolume < 0 || op.AvgCPC < 0 {
			return eris.Errorf("opportunity %q: negative volume or cpc", op.Service)
		}
		if !in.HasAuthoritativeKeywords && op.AvgCPC > 0 {
			if op.AvgCPC < in.Guidance.MinCPC || op.AvgCPC > in.Guidance.MaxCPC {
				return eris.Errorf("opportunity %q: ungrounded cpc %.2f outside [%.2f, %.2f]",
					op.Service, op.AvgCPC, in.Guidance.MinCPC, in.Guidance.MaxCPC)
			}
		}
		byService[op.Service] = true
	}
	for _, svc := range in.Request.Services {
		if !byService[svc] {
			return eris.Errorf("opportunity missing for service %q", svc)
		}
	}

	if r.Budget.DailyBudget < 0 || r.Budget.HardCap < 0 {
		return eris.New("negative budget recommendation")
	}
	return nil
}

// validatePlan enforces the plan-shape contract: one campaign per
// selected service with usable keywords and creative.
func validatePlan(p *model.CampaignPlan, in PlanInput) error {
	if len(p.Campaigns) == 0 {
		return eris.New("no campaigns")
	}

	byService := make(map[string]bool, len(p.Campaigns))
	for i := range p.Campaigns {
		c := &p.Campaigns[i]
		if strings.TrimSpace(c.Name) == "" {
			return eris.Errorf("campaign %d: missing name", i)
		}
		if len(c.Keywords) == 0 {
			return eris.Errorf("campaign %q: no keywords", c.Name)
		}
		for _, kw := range c.Keywords {
			switch kw.MatchType {
			case model.MatchExact, model.MatchPhrase, model.MatchBroad:
			default:
				return eris.Errorf("campaign %q: invalid match type %q", c.Name, kw.MatchType)
			}
		}
		if len(c.AdCopy.Headlines) == 0 || len(c.AdCopy.Descriptions) == 0 {
			return eris.Errorf("campaign %q: incomplete ad copy", c.Name)
		}
		if c.DailyBudget < 0 || c.EstimatedCPC < 0 {
			return eris.Errorf("campaign %q: negative budget or cpc", c.Name)
		}
		byService[c.Service] = true
	}
	for _, svc := range in.Selections.Services {
		if !byService[svc] {
			return eris.Errorf("campaign missing for service %q", svc)
		}
	}
	if strings.TrimSpace(p.Summary) == "" {
		return eris.New("missing plan summary")
	}
	return nil
}

// cleanJSON extracts a JSON object from text that may carry markdown
// code fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
