// Package models defines the domain types shared across the
// reconciliation pipeline: validation rules, balance amounts,
// reconciled rows, findings and correcting-journal records.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Severity represents the weight of a validation finding
type Severity string

const (
	// SeverityFatal marks a finding that makes its row an exception
	SeverityFatal Severity = "Fatal"
	// SeverityAdvisory marks a finding recorded for review only
	SeverityAdvisory Severity = "Advisory"
)

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is one of the known values
func (s Severity) IsValid() bool {
	return s == SeverityFatal || s == SeverityAdvisory
}

// ParseSeverity converts a catalog severity string to a Severity.
// Unrecognized values degrade to advisory so a catalog typo can never
// silently suppress a check's output as if it were unknown.
func ParseSeverity(s string) Severity {
	if strings.EqualFold(strings.TrimSpace(s), string(SeverityFatal)) {
		return SeverityFatal
	}
	return SeverityAdvisory
}

// ValidationRule is one configuration-described check. Rules are loaded
// once at startup and are read-only thereafter.
type ValidationRule struct {
	Category   string   `json:"Validation Type"`
	EditNumber string   `json:"Edit Number"`
	RuleID     string   `json:"Validation Number"`
	Severity   Severity `json:"Severity"`
	Message    string   `json:"Edit Message"`
}

// Validate performs basic validation on the rule descriptor
func (r *ValidationRule) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("rule category cannot be empty")
	}

	if strings.TrimSpace(r.EditNumber) == "" {
		return fmt.Errorf("rule edit number cannot be empty")
	}

	if strings.TrimSpace(r.RuleID) == "" {
		return fmt.Errorf("rule id cannot be empty")
	}

	return nil
}

// String returns a string representation of the rule
func (r *ValidationRule) String() string {
	return fmt.Sprintf("Rule{%s/%s %s %s}", r.Category, r.EditNumber, r.RuleID, r.Severity)
}

// Amount is a balance value that survived or failed numeric coercion.
// Invalid amounts keep their raw string so downstream checks can flag
// the row instead of the row being dropped from reconciliation.
type Amount struct {
	Value decimal.Decimal
	Valid bool
	Raw   string
}

// ZeroAmount returns a valid zero amount, used for balances absent
// after the outer join.
func ZeroAmount() Amount {
	return Amount{Value: decimal.Zero, Valid: true}
}

// ParseAmount parses a balance string into an Amount. Currency symbols
// and thousand separators are stripped first. Failures are retained,
// not returned as errors: the caller keeps the row and the engine
// reports the bad value as a fatal finding.
func ParseAmount(s string) Amount {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{Value: decimal.Zero, Valid: true, Raw: raw}
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{Valid: false, Raw: raw}
	}

	return Amount{Value: d, Valid: true, Raw: raw}
}

// IsZero reports whether the amount is valid and exactly zero
func (a Amount) IsZero() bool {
	return a.Valid && a.Value.IsZero()
}

// String returns the amount for display; invalid amounts render their
// raw input so reports show what the file actually contained.
func (a Amount) String() string {
	if !a.Valid {
		return a.Raw
	}
	return a.Value.String()
}

// ReconciliationStatus classifies one joined row
type ReconciliationStatus string

const (
	StatusMatched       ReconciliationStatus = "Matched"
	StatusMismatch      ReconciliationStatus = "Mismatch"
	StatusMissingInGTAS ReconciliationStatus = "Missing in GTAS"
	StatusMissingInERP  ReconciliationStatus = "Missing in ERP"
)

// String returns the report label for the status
func (s ReconciliationStatus) String() string {
	return string(s)
}

// IsValid checks if the status is one of the closed set
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case StatusMatched, StatusMismatch, StatusMissingInGTAS, StatusMissingInERP:
		return true
	default:
		return false
	}
}

// ReconciledRow is one reconciliation candidate produced by the outer
// join. Status and Difference are set once by the reconciler and never
// revised; FatalError and AdvisoryNote are appended to by the exception
// aggregator in rule-evaluation order.
type ReconciledRow struct {
	// Seq is the row's ordinal in the joined output, assigned by the
	// reconciler. RowID is the source-file line of the row's origin and
	// can collide between the two sources; Seq is the unique identity
	// findings attach to.
	Seq          int
	RowID        int
	TAS          string
	USSGLAccount string
	Fund         string
	GtasBalance  Amount
	NetBalance   Amount
	Difference   decimal.Decimal
	Status       ReconciliationStatus

	// Presence flags from the outer join. Classification deliberately
	// ignores them (absent compares as zero); they are carried so a
	// stricter classifier could use them without re-joining.
	InGtas bool
	InErp  bool

	FatalError   string
	AdvisoryNote string

	// Extra holds passthrough columns from the source rows
	Extra map[string]string
}

// Key returns the join key for the row
func (r *ReconciledRow) Key() string {
	return JoinKey(r.TAS, r.USSGLAccount)
}

// IsException reports whether the row belongs to the exception set:
// any status other than Matched, or at least one fatal finding.
func (r *ReconciledRow) IsException() bool {
	return r.Status != StatusMatched || r.FatalError != ""
}

// String returns a string representation of the row
func (r *ReconciledRow) String() string {
	return fmt.Sprintf("Row{%d %s/%s gtas=%s net=%s %s}",
		r.RowID, r.TAS, r.USSGLAccount, r.GtasBalance.String(), r.NetBalance.String(), r.Status)
}

// JoinKey builds the composite (TAS, USSGL account) reconciliation key
func JoinKey(tas, ussgl string) string {
	return tas + "\x1f" + ussgl
}

// Finding is one rule outcome for one row. Findings are ephemeral:
// the exception aggregator folds them into the row's accumulated text
// fields and they are not retained.
type Finding struct {
	// Row is the Seq of the joined row the finding applies to
	Row      int
	RuleID   string
	Severity Severity
	Message  string
}

// FormattedMessage returns the text appended to the row's accumulated
// field: "[RuleID] message" for catalog findings, the bare message for
// baseline findings that carry no rule id.
func (f Finding) FormattedMessage() string {
	if f.RuleID == "" {
		return f.Message
	}
	return fmt.Sprintf("[%s] %s", f.RuleID, f.Message)
}

// CorrectionRecord is one fixed-schema FBDI journal line derived from
// an exception row eligible for automated correction.
type CorrectionRecord struct {
	StatusCode          string
	LedgerID            int
	EffectiveDate       string
	JournalSource       string
	JournalCategory     string
	CurrencyCode        string
	CreationDate        string
	ActualFlag          string
	Segment1            string
	Segment2            string
	Segment3            string
	Segment4            string
	Segment5            string
	EnteredDebitAmount  decimal.Decimal
	EnteredCreditAmount decimal.Decimal
	Reference1          string
	Reference2          string
}
