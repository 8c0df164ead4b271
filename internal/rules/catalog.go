// Package rules implements the rule-driven validation engine: the
// catalog of configuration-described checks, the registry that routes
// each rule to its implementing check, and the baseline edit set that
// runs in every reconciliation regardless of catalog contents.
package rules

import (
	"encoding/json"
	"os"

	"gtas-reconciliation-service/internal/models"
	"gtas-reconciliation-service/pkg/errors"
	"gtas-reconciliation-service/pkg/logger"
)

// Catalog is the immutable set of validation rules for a run. It is
// loaded once at startup and passed by reference into every
// reconciliation call; rules are never added, removed or mutated
// mid-run.
type Catalog struct {
	Rules []models.ValidationRule
}

// Empty reports whether the catalog carries no rules
func (c *Catalog) Empty() bool {
	return c == nil || len(c.Rules) == 0
}

// LoadCatalog loads the rule catalog from a JSON file holding an array
// of rule descriptors. A missing or malformed catalog is never fatal:
// the engine logs the condition and continues with an empty rule set,
// so reconciliation still runs with the baseline edits.
func LoadCatalog(path string) *Catalog {
	log := logger.WithComponent("rules")

	if path == "" {
		log.Debug("No rule catalog configured; running baseline edits only")
		return &Catalog{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(errors.ConfigurationError(errors.CodeBadCatalog, path, err)).
			Warn("Rule catalog unreadable; continuing with empty rule set")
		return &Catalog{}
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		log.WithError(err).Warn("Rule catalog unparseable; continuing with empty rule set")
		return &Catalog{}
	}

	log.WithField("rules", len(catalog.Rules)).Info("Rule catalog loaded")
	return catalog
}

// ParseCatalog parses catalog JSON. The external format is an array of
// objects keyed "Validation Type", "Edit Number", "Validation Number",
// "Severity" and "Edit Message".
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw []struct {
		Category   string `json:"Validation Type"`
		EditNumber string `json:"Edit Number"`
		RuleID     string `json:"Validation Number"`
		Severity   string `json:"Severity"`
		Message    string `json:"Edit Message"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.ConfigurationError(errors.CodeBadCatalog, "rules file", err)
	}

	rules := make([]models.ValidationRule, 0, len(raw))
	for _, entry := range raw {
		rule := models.ValidationRule{
			Category:   entry.Category,
			EditNumber: entry.EditNumber,
			RuleID:     entry.RuleID,
			Severity:   models.ParseSeverity(entry.Severity),
			Message:    entry.Message,
		}

		if err := rule.Validate(); err != nil {
			logger.WithComponent("rules").WithError(err).
				WithField("rule", rule.String()).
				Warn("Dropping malformed rule descriptor")
			continue
		}

		rules = append(rules, rule)
	}

	return &Catalog{Rules: rules}, nil
}
