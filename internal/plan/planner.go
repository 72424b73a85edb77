// Package plan derives an advertising campaign plan from a previously
// persisted market analysis plus the user's selections.
package plan

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/internal/quota"
	"github.com/sells-group/adscout/internal/store"
	"github.com/sells-group/adscout/internal/synthesis"
)

// cpcTolerance absorbs float round-trip noise when comparing a campaign
// CPC against the analysis CPC. Anything past a tenth of a cent is real
// drift, not rounding.
const cpcTolerance = 0.001

// Synthesizer is the reasoning-engine boundary the planner depends on.
type Synthesizer interface {
	Plan(ctx context.Context, in synthesis.PlanInput) (*model.CampaignPlan, error)
}

// Planner runs the plan derivation stage.
type Planner struct {
	store  store.Store
	engine Synthesizer
	ledger *quota.Ledger
}

// NewPlanner creates a Planner.
func NewPlanner(st store.Store, engine Synthesizer, ledger *quota.Ledger) *Planner {
	return &Planner{store: st, engine: engine, ledger: ledger}
}

// Run derives a plan from a stored analysis. The analysis load is
// account-scoped: an id owned by another account fails with
// model.ErrNotFound exactly like a missing one. CPC drift between the
// plan and its source analysis is surfaced as warnings, not a failure.
func (p *Planner) Run(ctx context.Context, analysisID, accountID, userID string, selections model.PlanSelections) (*model.PlanResult, error) {
	if err := validateSelections(selections); err != nil {
		return nil, err
	}

	analysis, err := p.store.GetAnalysis(ctx, analysisID, accountID)
	if err != nil {
		return nil, eris.Wrapf(err, "plan: load analysis %s", analysisID)
	}

	derived, err := p.engine.Plan(ctx, synthesis.NewPlanInput(analysis, selections))
	if err != nil {
		return nil, err
	}
	derived.AccountID = accountID
	derived.AnalysisID = analysisID

	warnings := VerifyConsistency(derived, analysis)
	if len(warnings) > 0 {
		zap.L().Warn("plan: cpc drift from source analysis",
			zap.String("analysis_id", analysisID),
			zap.Int("campaigns_affected", len(warnings)),
		)
	}

	if err := p.store.SavePlan(ctx, derived); err != nil {
		return nil, eris.Wrap(err, "plan: save")
	}

	p.ledger.Record(ctx, accountID, userID, model.EventCampaignPlan, map[string]any{
		"plan_id":     derived.ID,
		"analysis_id": analysisID,
	})

	zap.L().Info("plan complete",
		zap.String("plan_id", derived.ID),
		zap.String("analysis_id", analysisID),
		zap.Int("campaigns", len(derived.Campaigns)),
		zap.Int("warnings", len(warnings)),
	)
	return &model.PlanResult{Plan: derived, Warnings: warnings}, nil
}

// VerifyConsistency checks the cross-stage contract: each campaign's
// estimated CPC must equal the source analysis's average CPC for that
// service. Violations are reported, never mutated — the plan is stored
// as the engine produced it.
func VerifyConsistency(plan *model.CampaignPlan, analysis *model.MarketAnalysisResult) []model.ConsistencyWarning {
	var warnings []model.ConsistencyWarning
	for _, c := range plan.Campaigns {
		op := analysis.OpportunityFor(c.Service)
		if op == nil {
			continue
		}
		if math.Abs(c.EstimatedCPC-op.AvgCPC) > cpcTolerance {
			warnings = append(warnings, model.ConsistencyWarning{
				Service:     c.Service,
				PlanCPC:     c.EstimatedCPC,
				AnalysisCPC: op.AvgCPC,
			})
		}
	}
	return warnings
}

func validateSelections(sel model.PlanSelections) error {
	if len(sel.Services) == 0 {
		return eris.Wrap(model.ErrInvalidRequest, "plan: at least one service must be selected")
	}
	if sel.DailyBudget <= 0 {
		return eris.Wrap(model.ErrInvalidRequest, "plan: daily budget must be positive")
	}
	return nil
}
