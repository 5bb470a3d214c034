// Package validate checks rule files against a world without distributing
// anything.
package validate

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"formdist/internal/form"
	"formdist/internal/lookup"
	"formdist/internal/ruleset"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeRuleFileInvalid   = "rule_file_invalid"
	codeUnknownPlugin     = "unknown_plugin"
	codeFormNotFound      = "form_not_found"
	codeEditorIDNotFound  = "editor_id_not_found"
	codeInvalidFormType   = "invalid_form_type"
	codeMissingEditorID   = "missing_editor_id"
	codeCreateFailed      = "create_failed"
	codeUnresolvedRule    = "unresolved_rule"
	codeUnresolvedFilter  = "unresolved_filter"
	codeZeroChance        = "zero_chance"
	codeDuplicateOverride = "duplicate_override"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Category string
	Form     string
	FilePath string
}

type Report struct {
	Issues []Issue
	Tables *lookup.Tables
}

func (r *Report) ErrorCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Run resolves rules against registry and reports every dropped record,
// dropped filter and rule that can never apply.
func Run(registry form.Registry, remapper form.Remapper, rules *ruleset.Result, logger *zap.Logger) (*Report, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if rules == nil {
		return nil, fmt.Errorf("rules are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	issues := make([]Issue, 0)
	for _, err := range rules.Errors {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeRuleFileInvalid,
			Message:  err.Error(),
		})
	}

	tables, diags := lookup.Run(registry, remapper, rules.Records, logger, nil)
	for _, diag := range diags {
		issues = append(issues, issueFromDiagnostic(diag))
	}

	for _, c := range lookup.All {
		collection := tables.Get(c)
		issues = append(issues, validateChance(c, collection)...)
		if c.Overridable() {
			issues = append(issues, validateOverrides(c, collection)...)
		}
	}

	return &Report{Issues: issues, Tables: tables}, nil
}

func issueFromDiagnostic(diag lookup.Diagnostic) Issue {
	issue := Issue{
		Severity: SeverityError,
		Code:     errorCode(diag.Err),
		Message:  diag.Err.Error(),
		Category: diag.Category.String(),
		Form:     diag.Target,
		FilePath: diag.Path,
	}
	if diag.Warning {
		issue.Severity = SeverityWarn
		issue.Code = codeUnresolvedFilter
	}
	return issue
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, lookup.ErrUnknownPlugin):
		return codeUnknownPlugin
	case errors.Is(err, lookup.ErrFormNotFound):
		return codeFormNotFound
	case errors.Is(err, lookup.ErrEditorIDNotFound):
		return codeEditorIDNotFound
	case errors.Is(err, lookup.ErrInvalidFormType):
		return codeInvalidFormType
	case errors.Is(err, lookup.ErrMissingEditorID):
		return codeMissingEditorID
	case errors.Is(err, lookup.ErrCreateFailed):
		return codeCreateFailed
	default:
		return codeUnresolvedRule
	}
}

func validateChance(c lookup.Category, collection *lookup.Collection) []Issue {
	var issues []Issue
	for _, entry := range collection.Entries(false) {
		if entry.Filters.Chance == nil || *entry.Filters.Chance > 0 {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeZeroChance,
			Message:  "rule has a chance of 0 and never applies",
			Category: c.String(),
			Form:     entry.Form.String(),
			FilePath: entry.Path,
		})
	}
	return issues
}

// validateOverrides flags single-slot rules without filters that follow
// another unfiltered rule of the same category. Only one of them can win.
func validateOverrides(c lookup.Category, collection *lookup.Collection) []Issue {
	var issues []Issue
	var first *lookup.Entry
	for _, entry := range collection.Entries(false) {
		if !entry.Filters.IsEmpty() {
			continue
		}
		if first == nil {
			first = &entry
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeDuplicateOverride,
			Message:  fmt.Sprintf("unfiltered rule is shadowed by %s from %s", first.Form, first.Path),
			Category: c.String(),
			Form:     entry.Form.String(),
			FilePath: entry.Path,
		})
	}
	return issues
}
