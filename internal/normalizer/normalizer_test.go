package normalizer

import (
	"testing"

	"gtas-reconciliation-service/internal/tabular"
	"gtas-reconciliation-service/pkg/errors"
)

func gtasTable(headers []string, rows [][]string) *tabular.Table {
	return &tabular.Table{Name: "gtas.csv", Headers: headers, Rows: rows}
}

func erpTable(headers []string, rows [][]string) *tabular.Table {
	return &tabular.Table{Name: "erp.csv", Headers: headers, Rows: rows}
}

func TestNormalizeSourceHeaders(t *testing.T) {
	// Headers arrive mixed-case and padded; aliases map to canonical names
	table := gtasTable(
		[]string{" tas ", "USSGL", "GTAS_Balance"},
		[][]string{{"X1234", "101000", "50"}},
	)

	source, err := NormalizeSource(table, GtasConfig())
	if err != nil {
		t.Fatalf("NormalizeSource failed: %v", err)
	}

	if len(source.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(source.Rows))
	}

	row := source.Rows[0]
	if row.TAS != "X1234" {
		t.Errorf("TAS = %q", row.TAS)
	}
	if row.USSGLAccount != "101000" {
		t.Errorf("USSGLAccount = %q", row.USSGLAccount)
	}
	if !row.Balance.Valid || row.Balance.Value.String() != "50" {
		t.Errorf("Balance = %+v, want valid 50", row.Balance)
	}
}

func TestNormalizeSourceRowIDs(t *testing.T) {
	table := gtasTable(
		[]string{"TAS", "USSGL_ACCOUNT", "GTAS_BALANCE"},
		[][]string{
			{"X1234", "101000", "50"},
			{"97-0100", "610000", "25"},
		},
	)

	source, err := NormalizeSource(table, GtasConfig())
	if err != nil {
		t.Fatalf("NormalizeSource failed: %v", err)
	}

	// Row ids mirror the 1-indexed source file with its header row
	if source.Rows[0].RowID != 2 || source.Rows[1].RowID != 3 {
		t.Errorf("row ids = %d, %d, want 2, 3", source.Rows[0].RowID, source.Rows[1].RowID)
	}
}

func TestNormalizeSourceMissingColumns(t *testing.T) {
	table := gtasTable(
		[]string{"TAS", "SOMETHING_ELSE"},
		[][]string{{"X1234", "x"}},
	)

	_, err := NormalizeSource(table, GtasConfig())
	if err == nil {
		t.Fatal("expected schema error for missing columns")
	}

	engineErr, ok := errors.AsEngineError(err)
	if !ok {
		t.Fatalf("expected EngineError, got %T", err)
	}
	if engineErr.Category != errors.CategorySchema {
		t.Errorf("category = %s, want schema", engineErr.Category)
	}
	if !engineErr.IsRunFatal() {
		t.Error("schema error must be fatal to the run")
	}

	missing, _ := engineErr.Context["missing_columns"].([]string)
	if len(missing) != 2 {
		t.Errorf("missing columns = %v, want both GTAS_BALANCE and USSGL_ACCOUNT", missing)
	}
}

func TestNormalizeSourceInvalidBalanceRetained(t *testing.T) {
	table := gtasTable(
		[]string{"TAS", "USSGL_ACCOUNT", "GTAS_BALANCE"},
		[][]string{
			{"X1234", "101000", "N/A"},
			{"97-0100", "610000", "25"},
		},
	)

	source, err := NormalizeSource(table, GtasConfig())
	if err != nil {
		t.Fatalf("NormalizeSource failed: %v", err)
	}

	// Non-numeric balance must not drop the row
	if len(source.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(source.Rows))
	}

	bad := source.Rows[0]
	if bad.Balance.Valid {
		t.Error("non-numeric balance reported as valid")
	}
	if bad.Balance.Raw != "N/A" {
		t.Errorf("raw balance = %q, want N/A preserved", bad.Balance.Raw)
	}
}

func TestNormalizeErpRequiresFund(t *testing.T) {
	table := erpTable(
		[]string{"TAS", "USSGL_ACCOUNT", "NET_BALANCE"},
		[][]string{{"X1234", "101000", "50"}},
	)

	_, err := NormalizeSource(table, ErpConfig())
	if err == nil {
		t.Fatal("expected schema error: ERP requires FUND")
	}
}

func TestNormalizeBothSources(t *testing.T) {
	gtas := gtasTable(
		[]string{"TAS", "USSGL", "GTAS_Balance"},
		[][]string{{"X1234", "101000", "50"}},
	)
	erp := erpTable(
		[]string{"TAS", "USSGL_ACCOUNT", "FUND", "NET_BALANCE"},
		[][]string{{"X1234", "101000", "F100", "50"}},
	)

	gtasSource, erpSource, err := Normalize(gtas, erp)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if gtasSource.Name != "GTAS" || erpSource.Name != "ERP" {
		t.Errorf("source names = %s, %s", gtasSource.Name, erpSource.Name)
	}
	if erpSource.Rows[0].Fund != "F100" {
		t.Errorf("Fund = %q, want F100", erpSource.Rows[0].Fund)
	}
}

func TestPassthroughColumns(t *testing.T) {
	table := gtasTable(
		[]string{"TAS", "USSGL_ACCOUNT", "GTAS_BALANCE", "AGENCY"},
		[][]string{{"X1234", "101000", "50", "Treasury"}},
	)

	source, err := NormalizeSource(table, GtasConfig())
	if err != nil {
		t.Fatalf("NormalizeSource failed: %v", err)
	}

	if got := source.Rows[0].Extra["AGENCY"]; got != "Treasury" {
		t.Errorf("Extra[AGENCY] = %q, want Treasury", got)
	}
}
