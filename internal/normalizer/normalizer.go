// Package normalizer aligns the two raw tabular extracts onto a common
// column vocabulary before reconciliation.
//
// Normalization is independent per source: headers are trimmed and
// uppercased, known aliases are mapped to canonical names, required
// columns are verified, and every row gets a stable identifier derived
// from its position in the source file so findings can point back at
// the original line. Balance fields are coerced to decimal; rows whose
// balance does not parse are kept with an invalid Amount rather than
// dropped, so the engine can flag them instead of silently losing them.
package normalizer

import (
	"sort"
	"strings"

	"gtas-reconciliation-service/internal/models"
	"gtas-reconciliation-service/internal/tabular"
	"gtas-reconciliation-service/pkg/errors"
	"gtas-reconciliation-service/pkg/logger"
)

// Canonical column names after normalization
const (
	ColumnTAS         = "TAS"
	ColumnUSSGL       = "USSGL_ACCOUNT"
	ColumnFund        = "FUND"
	ColumnGtasBalance = "GTAS_BALANCE"
	ColumnNetBalance  = "NET_BALANCE"
)

// SourceConfig describes how one input source is normalized
type SourceConfig struct {
	// Name identifies the source in errors and logs ("GTAS", "ERP")
	Name string

	// RequiredColumns must all be present after normalization
	RequiredColumns []string

	// BalanceColumn is the column coerced to a decimal amount
	BalanceColumn string

	// ColumnAliases maps normalized header variants to canonical names
	ColumnAliases map[string]string
}

// GtasConfig returns the normalization configuration for the GTAS
// reporting extract.
func GtasConfig() *SourceConfig {
	return &SourceConfig{
		Name:            "GTAS",
		RequiredColumns: []string{ColumnTAS, ColumnUSSGL, ColumnGtasBalance},
		BalanceColumn:   ColumnGtasBalance,
		ColumnAliases: map[string]string{
			"USSGL":        ColumnUSSGL,
			"USSGL_ACCT":   ColumnUSSGL,
			"GTAS_BAL":     ColumnGtasBalance,
			"BALANCE":      ColumnGtasBalance,
			"TAS_CODE":     ColumnTAS,
			"TREASURY_TAS": ColumnTAS,
		},
	}
}

// ErpConfig returns the normalization configuration for the internal
// ERP ledger extract.
func ErpConfig() *SourceConfig {
	return &SourceConfig{
		Name:            "ERP",
		RequiredColumns: []string{ColumnTAS, ColumnUSSGL, ColumnFund, ColumnNetBalance},
		BalanceColumn:   ColumnNetBalance,
		ColumnAliases: map[string]string{
			"USSGL":       ColumnUSSGL,
			"USSGL_ACCT":  ColumnUSSGL,
			"NET_BAL":     ColumnNetBalance,
			"NET_AMOUNT":  ColumnNetBalance,
			"FUND_CODE":   ColumnFund,
			"TAS_CODE":    ColumnTAS,
			"ACCOUNT_TAS": ColumnTAS,
		},
	}
}

// Row is one normalized source row. RowID is the 1-indexed source file
// line (position + 2, mirroring a header row), assigned once and never
// reused.
type Row struct {
	RowID        int
	TAS          string
	USSGLAccount string
	Fund         string
	Balance      models.Amount
	Extra        map[string]string
}

// Source is one normalized input dataset
type Source struct {
	Name string
	Rows []Row
}

// Normalize normalizes both extracts. A missing required column in
// either source is a schema error and aborts the run; no downstream
// join is attempted on a source missing its key columns.
func Normalize(gtas, erp *tabular.Table) (*Source, *Source, error) {
	gtasSource, err := NormalizeSource(gtas, GtasConfig())
	if err != nil {
		return nil, nil, err
	}

	erpSource, err := NormalizeSource(erp, ErpConfig())
	if err != nil {
		return nil, nil, err
	}

	return gtasSource, erpSource, nil
}

// NormalizeSource normalizes one extract according to its config
func NormalizeSource(table *tabular.Table, config *SourceConfig) (*Source, error) {
	log := logger.WithComponent("normalizer").WithField("source", config.Name)

	headers := normalizeHeaders(table.Headers, config.ColumnAliases)

	if missing := missingColumns(headers, config.RequiredColumns); len(missing) > 0 {
		log.WithField("missing_columns", missing).Error("Required columns absent")
		return nil, errors.SchemaError(config.Name, missing)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		// first occurrence wins for duplicated headers
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	rows := make([]Row, 0, len(table.Rows))
	invalidBalances := 0

	for i := range table.Rows {
		row := Row{
			RowID:        table.Line(i),
			TAS:          strings.TrimSpace(table.Cell(i, index[ColumnTAS])),
			USSGLAccount: strings.TrimSpace(table.Cell(i, index[ColumnUSSGL])),
			Extra:        passthrough(table, headers, i, config),
		}

		if fundIdx, ok := index[ColumnFund]; ok {
			row.Fund = strings.TrimSpace(table.Cell(i, fundIdx))
		}

		row.Balance = models.ParseAmount(table.Cell(i, index[config.BalanceColumn]))
		if !row.Balance.Valid {
			invalidBalances++
			coercionErr := errors.CoercionError(config.BalanceColumn, row.Balance.Raw, row.RowID, nil)
			log.WithError(coercionErr).Warn("Balance failed numeric coercion; row retained for flagging")
		}

		rows = append(rows, row)
	}

	log.WithFields(logger.Fields{
		"rows":             len(rows),
		"invalid_balances": invalidBalances,
	}).Info("Source normalized")

	return &Source{Name: config.Name, Rows: rows}, nil
}

// normalizeHeaders trims, uppercases and alias-maps every header
func normalizeHeaders(headers []string, aliases map[string]string) []string {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		name := strings.ToUpper(strings.TrimSpace(h))
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		normalized[i] = name
	}
	return normalized
}

func missingColumns(headers []string, required []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

// passthrough collects the source-specific columns that are not part
// of the canonical set, preserved for the exception report.
func passthrough(table *tabular.Table, headers []string, rowIndex int, config *SourceConfig) map[string]string {
	canonical := map[string]bool{
		ColumnTAS:   true,
		ColumnUSSGL: true,
		ColumnFund:  true,
	}
	canonical[config.BalanceColumn] = true

	var extra map[string]string
	for colIdx, h := range headers {
		if canonical[h] {
			continue
		}
		value := strings.TrimSpace(table.Cell(rowIndex, colIdx))
		if value == "" {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[h] = value
	}
	return extra
}
