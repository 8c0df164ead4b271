// Package engine orchestrates one reconciliation run end to end:
// normalize both extracts, join and classify, apply baseline and
// catalog edits, aggregate findings per row, and derive the exception
// set and the correcting-journal records.
//
// The caller-visible contract is binary: Run returns a RunResult with
// Success true and the complete results, or Success false and a
// message. Only a schema error on a required input (or an unreadable
// input file) fails the run; every other condition degrades to a
// per-row or per-rule finding.
package engine

import (
	"fmt"
	"time"

	"gtas-reconciliation-service/internal/models"
	"gtas-reconciliation-service/internal/normalizer"
	"gtas-reconciliation-service/internal/reconciler"
	"gtas-reconciliation-service/internal/rules"
	"gtas-reconciliation-service/internal/tabular"
	"gtas-reconciliation-service/pkg/logger"
)

// Engine runs reconciliations against a fixed rule catalog and check
// registry. It is safe to reuse across runs; it holds no per-run
// state.
type Engine struct {
	catalog  *rules.Catalog
	registry *rules.Registry
	clock    func() time.Time
	log      logger.Logger
}

// New creates an Engine with the given catalog. A nil catalog is
// treated as empty (baseline edits only).
func New(catalog *rules.Catalog) *Engine {
	if catalog == nil {
		catalog = &rules.Catalog{}
	}
	return &Engine{
		catalog:  catalog,
		registry: rules.NewRegistry(),
		clock:    time.Now,
		log:      logger.WithComponent("engine"),
	}
}

// RunRequest identifies the two input extracts for one run
type RunRequest struct {
	GtasFile string
	ErpFile  string
}

// Summary holds run-level counts for reporting and logging
type Summary struct {
	TotalRows      int            `json:"total_rows"`
	ExceptionRows  int            `json:"exception_rows"`
	Corrections    int            `json:"corrections"`
	StatusCounts   map[string]int `json:"status_counts"`
	RulesEvaluated int            `json:"rules_evaluated"`
	Duration       time.Duration  `json:"duration"`
}

// RunResult is the binary outcome of a run. On failure Err retains the
// typed error so callers can map it to an exit code or a status code;
// Message carries the same failure as display text.
type RunResult struct {
	Success     bool
	Message     string
	Err         error
	Rows        []*models.ReconciledRow
	Exceptions  []*models.ReconciledRow
	Corrections []models.CorrectionRecord
	Summary     Summary
}

// Run executes one reconciliation from input files. It never panics
// and never returns an error: every failure path folds into a
// RunResult with Success false.
func (e *Engine) Run(request RunRequest) *RunResult {
	started := e.clock()

	gtasTable, err := tabular.ReadFile(request.GtasFile)
	if err != nil {
		return e.failure("reading GTAS input", err)
	}

	erpTable, err := tabular.ReadFile(request.ErpFile)
	if err != nil {
		return e.failure("reading ERP input", err)
	}

	return e.RunTables(gtasTable, erpTable, started)
}

// RunTables executes one reconciliation from already-read tables; the
// HTTP surface uses this after decoding uploads.
func (e *Engine) RunTables(gtasTable, erpTable *tabular.Table, started time.Time) *RunResult {
	if started.IsZero() {
		started = e.clock()
	}

	gtas, erp, err := normalizer.Normalize(gtasTable, erpTable)
	if err != nil {
		return e.failure("normalizing inputs", err)
	}

	rows := reconciler.Reconcile(gtas, erp)

	baselineFindings, reported := rules.ApplyBaseline(rows)
	catalogFindings := e.registry.ApplyRules(rows, e.catalog, reported)

	findings := append(baselineFindings, catalogFindings...)
	Aggregate(rows, findings)

	exceptions := Exceptions(rows)
	corrections := EmitCorrections(exceptions, e.clock())

	summary := Summary{
		TotalRows:      len(rows),
		ExceptionRows:  len(exceptions),
		Corrections:    len(corrections),
		StatusCounts:   statusCounts(rows),
		RulesEvaluated: len(e.catalog.Rules),
		Duration:       e.clock().Sub(started),
	}

	e.log.WithFields(logger.Fields{
		"total_rows":     summary.TotalRows,
		"exception_rows": summary.ExceptionRows,
		"corrections":    summary.Corrections,
		"duration":       summary.Duration.String(),
	}).Info("Reconciliation run complete")

	return &RunResult{
		Success:     true,
		Message:     fmt.Sprintf("Validation complete. %d rows reconciled, %d exceptions.", summary.TotalRows, summary.ExceptionRows),
		Rows:        rows,
		Exceptions:  exceptions,
		Corrections: corrections,
		Summary:     summary,
	}
}

func (e *Engine) failure(stage string, err error) *RunResult {
	e.log.WithError(err).WithField("stage", stage).Error("Reconciliation run failed")
	return &RunResult{
		Success: false,
		Message: fmt.Sprintf("%s: %v", stage, err),
		Err:     err,
	}
}

func statusCounts(rows []*models.ReconciledRow) map[string]int {
	counts := make(map[string]int, 4)
	for _, row := range rows {
		counts[row.Status.String()]++
	}
	return counts
}
