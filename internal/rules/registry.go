package rules

import (
	"strings"

	"gtas-reconciliation-service/internal/models"
	"gtas-reconciliation-service/pkg/errors"
	"gtas-reconciliation-service/pkg/logger"
)

// Condition tags the underlying business condition a finding reports.
// Both the baseline edits and the catalog checks tag their findings so
// the dispatcher can guarantee one condition is never reported twice
// for the same row within a run.
type Condition string

const (
	ConditionNonNumericBalance Condition = "non_numeric_balance"
	ConditionMissingRequired   Condition = "missing_required_field"
	ConditionCanceledTAS       Condition = "canceled_tas_balance"
	ConditionLiabilitySeries   Condition = "liability_series"
	Condition445000Nonzero     Condition = "445000_nonzero"
	ConditionBudgetaryNegative Condition = "budgetary_negative"
	ConditionShortTAS          Condition = "short_tas"
)

// CheckFunc is one registered edit implementation. Checks receive the
// full row set by value and must be read-only over it: rule evaluation
// order can never change another rule's outcome.
type CheckFunc func(rows []models.ReconciledRow, rule models.ValidationRule) []models.Finding

type registeredCheck struct {
	fn        CheckFunc
	condition Condition
}

// Registry is the closed mapping from (category, edit number) to a
// check implementation, built once at startup. Unknown keys produce a
// typed not-found result, never a runtime resolution failure.
type Registry struct {
	categories map[string]map[string]registeredCheck
}

// NewRegistry builds the registry with the full edit set
func NewRegistry() *Registry {
	r := &Registry{categories: make(map[string]map[string]registeredCheck)}

	r.register(CategoryUSSGLLevel, "3", registeredCheck{checkMissingRequiredFields, ConditionMissingRequired})
	r.register(CategoryUSSGLLevel, "4", registeredCheck{checkCanceledTASBalance, ConditionCanceledTAS})
	r.register(CategoryUSSGLLevel, "5", registeredCheck{checkLiabilityAdvisory, ConditionLiabilitySeries})

	return r
}

// CategoryUSSGLLevel owns the general-ledger level edits
const CategoryUSSGLLevel = "ussgl-level"

// categoryAliases maps accepted catalog spellings to registered
// category keys.
var categoryAliases = map[string]string{
	"general-ledger-level": CategoryUSSGLLevel,
	"ussgl":                CategoryUSSGLLevel,
}

func (r *Registry) register(category, editNumber string, check registeredCheck) {
	if r.categories[category] == nil {
		r.categories[category] = make(map[string]registeredCheck)
	}
	r.categories[category][editNumber] = check
}

// resolve looks up the check for a rule descriptor
func (r *Registry) resolve(rule models.ValidationRule) (registeredCheck, *errors.EngineError) {
	category := normalizeCategory(rule.Category)
	if alias, ok := categoryAliases[category]; ok {
		category = alias
	}

	edits, ok := r.categories[category]
	if !ok {
		return registeredCheck{}, errors.RuleResolutionError(errors.CodeUnknownCategory, rule.Category, rule.EditNumber)
	}

	check, ok := edits[strings.TrimSpace(rule.EditNumber)]
	if !ok {
		return registeredCheck{}, errors.RuleResolutionError(errors.CodeUnknownEdit, rule.Category, rule.EditNumber)
	}

	return check, nil
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	category = strings.ReplaceAll(category, "_", "-")
	category = strings.ReplaceAll(category, " ", "-")
	return category
}

// ApplyRules dispatches every catalog rule against the reconciled rows
// and collects the findings in catalog order. An unresolvable rule is
// logged and skipped; it never aborts the run or affects other rules.
// Findings whose condition was already reported for a row (by the
// baseline edits or an earlier rule) are suppressed.
func (r *Registry) ApplyRules(rows []*models.ReconciledRow, catalog *Catalog, reported *ConditionSet) []models.Finding {
	if catalog.Empty() {
		return nil
	}

	log := logger.WithComponent("rules")
	if reported == nil {
		reported = NewConditionSet()
	}

	// Checks get a private copy of the row set so they cannot mutate
	// shared state.
	snapshot := make([]models.ReconciledRow, len(rows))
	for i, row := range rows {
		snapshot[i] = *row
	}

	var findings []models.Finding
	for _, rule := range catalog.Rules {
		check, resolveErr := r.resolve(rule)
		if resolveErr != nil {
			log.WithError(resolveErr).WithField("rule", rule.String()).
				Warn("Skipping unresolvable rule")
			continue
		}

		for _, finding := range check.fn(snapshot, rule) {
			if reported.Has(finding.Row, check.condition) {
				continue
			}
			reported.Mark(finding.Row, check.condition)
			findings = append(findings, finding)
		}
	}

	return findings
}

// ConditionSet tracks which (row, condition) pairs have already been
// reported within a run. Rows are keyed by their join ordinal (Seq),
// which unlike the file-line row id is unique across both sources.
type ConditionSet struct {
	seen map[int]map[Condition]bool
}

// NewConditionSet creates an empty condition set
func NewConditionSet() *ConditionSet {
	return &ConditionSet{seen: make(map[int]map[Condition]bool)}
}

// Mark records that a condition was reported for a row
func (cs *ConditionSet) Mark(seq int, condition Condition) {
	if cs.seen[seq] == nil {
		cs.seen[seq] = make(map[Condition]bool)
	}
	cs.seen[seq][condition] = true
}

// Has reports whether a condition was already reported for a row
func (cs *ConditionSet) Has(seq int, condition Condition) bool {
	return cs.seen[seq][condition]
}
