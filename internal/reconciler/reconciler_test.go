package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"

	"gtas-reconciliation-service/internal/models"
	"gtas-reconciliation-service/internal/normalizer"
)

func gtasRow(rowID int, tas, ussgl, balance string) normalizer.Row {
	return normalizer.Row{
		RowID:        rowID,
		TAS:          tas,
		USSGLAccount: ussgl,
		Balance:      models.ParseAmount(balance),
	}
}

func erpRow(rowID int, tas, ussgl, fund, balance string) normalizer.Row {
	return normalizer.Row{
		RowID:        rowID,
		TAS:          tas,
		USSGLAccount: ussgl,
		Fund:         fund,
		Balance:      models.ParseAmount(balance),
	}
}

func sources(gtas, erp []normalizer.Row) (*normalizer.Source, *normalizer.Source) {
	return &normalizer.Source{Name: "GTAS", Rows: gtas},
		&normalizer.Source{Name: "ERP", Rows: erp}
}

func TestReconcileStatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		gtas       string
		net        string
		wantStatus models.ReconciliationStatus
	}{
		{"exact match", "1000.00", "1000.00", models.StatusMatched},
		{"within tolerance", "1000.00", "1000.005", models.StatusMatched},
		{"beyond tolerance", "1000.00", "999.98", models.StatusMismatch},
		{"gtas zero net nonzero", "0", "500", models.StatusMissingInGTAS},
		{"net zero gtas nonzero", "500", "0", models.StatusMissingInERP},
		{"both zero", "0", "0", models.StatusMatched},
		// Ordering matters: one-sided zero is "missing" even when the
		// difference is inside the mismatch tolerance
		{"one-sided tiny balance", "0.005", "0", models.StatusMissingInERP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gtas, erp := sources(
				[]normalizer.Row{gtasRow(2, "97-0100", "610000", tt.gtas)},
				[]normalizer.Row{erpRow(2, "97-0100", "610000", "F100", tt.net)},
			)

			rows := Reconcile(gtas, erp)
			if len(rows) != 1 {
				t.Fatalf("rows = %d, want 1", len(rows))
			}
			if rows[0].Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", rows[0].Status, tt.wantStatus)
			}
		})
	}
}

func TestReconcileDifferenceExact(t *testing.T) {
	gtas, erp := sources(
		[]normalizer.Row{gtasRow(2, "97-0100", "610000", "1000.00")},
		[]normalizer.Row{erpRow(2, "97-0100", "610000", "F100", "999.98")},
	)

	rows := Reconcile(gtas, erp)

	want := decimal.NewFromFloat(0.02)
	if !rows[0].Difference.Equal(want) {
		t.Errorf("difference = %s, want exactly 0.02", rows[0].Difference)
	}
}

func TestReconcileOuterJoin(t *testing.T) {
	gtas, erp := sources(
		[]normalizer.Row{
			gtasRow(2, "97-0100", "610000", "100"),
			gtasRow(3, "X1234", "101000", "50"),
		},
		[]normalizer.Row{
			erpRow(2, "97-0100", "610000", "F100", "100"),
			erpRow(3, "97-0200", "445000", "F200", "75"),
		},
	)

	rows := Reconcile(gtas, erp)

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (every key in either source)", len(rows))
	}

	byKey := make(map[string]*models.ReconciledRow)
	for _, row := range rows {
		byKey[row.Key()] = row
	}

	matched := byKey[models.JoinKey("97-0100", "610000")]
	if matched.Status != models.StatusMatched || !matched.InGtas || !matched.InErp {
		t.Errorf("matched row = %+v", matched)
	}

	// GTAS-only row: ERP balance absent, treated as zero
	gtasOnly := byKey[models.JoinKey("X1234", "101000")]
	if gtasOnly.Status != models.StatusMissingInERP {
		t.Errorf("gtas-only status = %s, want Missing in ERP", gtasOnly.Status)
	}
	if gtasOnly.InErp {
		t.Error("gtas-only row marked present in ERP")
	}
	if !gtasOnly.NetBalance.IsZero() {
		t.Errorf("gtas-only net balance = %s, want zero", gtasOnly.NetBalance)
	}

	erpOnly := byKey[models.JoinKey("97-0200", "445000")]
	if erpOnly.Status != models.StatusMissingInGTAS {
		t.Errorf("erp-only status = %s, want Missing in GTAS", erpOnly.Status)
	}
	if erpOnly.Fund != "F200" {
		t.Errorf("erp-only fund = %q, want F200", erpOnly.Fund)
	}
}

func TestReconcileCanceledTASScenario(t *testing.T) {
	// GTAS row {TAS:X1234, USSGL:101000, BALANCE:50}, no ERP
	// counterpart: GTAS nonzero, net absent -> zero -> Missing in ERP
	gtas, erp := sources(
		[]normalizer.Row{gtasRow(2, "X1234", "101000", "50")},
		nil,
	)

	rows := Reconcile(gtas, erp)

	if rows[0].Status != models.StatusMissingInERP {
		t.Errorf("status = %s, want Missing in ERP", rows[0].Status)
	}
}

func TestReconcileInvalidBalanceComparesAsZero(t *testing.T) {
	gtas, erp := sources(
		[]normalizer.Row{gtasRow(2, "97-0100", "610000", "N/A")},
		[]normalizer.Row{erpRow(2, "97-0100", "610000", "F100", "100")},
	)

	rows := Reconcile(gtas, erp)

	if rows[0].Status != models.StatusMissingInGTAS {
		t.Errorf("status = %s, want Missing in GTAS (invalid compares as zero)", rows[0].Status)
	}
	if rows[0].GtasBalance.Valid {
		t.Error("invalid balance flag lost through reconciliation")
	}
}

func TestReconcileSeqUniqueAcrossSources(t *testing.T) {
	// Row ids are per-source file lines: a GTAS row and an ERP-only row
	// can both carry id 2. Seq must still be unique over the output.
	gtas, erp := sources(
		[]normalizer.Row{gtasRow(2, "A1234", "310000", "100")},
		[]normalizer.Row{erpRow(2, "B5678", "610000", "F100", "50")},
	)

	rows := Reconcile(gtas, erp)

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].RowID != 2 || rows[1].RowID != 2 {
		t.Fatalf("fixture expects colliding row ids, got %d and %d", rows[0].RowID, rows[1].RowID)
	}
	if rows[0].Seq == rows[1].Seq {
		t.Errorf("seq %d repeated across sources", rows[0].Seq)
	}
}

func TestReconcileDuplicateErpKeysFirstWins(t *testing.T) {
	gtas, erp := sources(
		[]normalizer.Row{gtasRow(2, "97-0100", "610000", "100")},
		[]normalizer.Row{
			erpRow(2, "97-0100", "610000", "F100", "100"),
			erpRow(3, "97-0100", "610000", "F200", "999"),
		},
	)

	rows := Reconcile(gtas, erp)

	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 (duplicate ERP key collapses)", len(rows))
	}
	if !rows[0].NetBalance.Value.Equal(decimal.NewFromInt(100)) {
		t.Errorf("net balance = %s, want the first occurrence's 100", rows[0].NetBalance)
	}
	if rows[0].Fund != "F100" {
		t.Errorf("fund = %q, want F100 from the first occurrence", rows[0].Fund)
	}
	if rows[0].Status != models.StatusMatched {
		t.Errorf("status = %s, want Matched", rows[0].Status)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	gtas, erp := sources(
		[]normalizer.Row{
			gtasRow(2, "97-0100", "610000", "100"),
			gtasRow(3, "X1234", "101000", "50"),
		},
		[]normalizer.Row{erpRow(2, "97-0100", "610000", "F100", "99.50")},
	)

	first := Reconcile(gtas, erp)
	second := Reconcile(gtas, erp)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i].Status != second[i].Status {
			t.Errorf("row %d status differs between runs: %s vs %s", i, first[i].Status, second[i].Status)
		}
		if !first[i].Difference.Equal(second[i].Difference) {
			t.Errorf("row %d difference differs between runs", i)
		}
	}
}

func TestReconcileDeterministicOrder(t *testing.T) {
	gtas, erp := sources(
		[]normalizer.Row{
			gtasRow(2, "B", "1", "10"),
			gtasRow(3, "A", "1", "10"),
		},
		[]normalizer.Row{
			erpRow(2, "C", "1", "F1", "10"),
			erpRow(3, "A", "1", "F1", "10"),
		},
	)

	rows := Reconcile(gtas, erp)

	wantTAS := []string{"B", "A", "C"}
	for i, tas := range wantTAS {
		if rows[i].TAS != tas {
			t.Errorf("row %d TAS = %s, want %s (GTAS file order, then ERP-only)", i, rows[i].TAS, tas)
		}
	}
}
