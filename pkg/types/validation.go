// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ParseSeverity maps free-form input to a Severity. Anything other than
// "warning" is an error.
func ParseSeverity(s string) Severity {
	if normalizeEnum(s) == "warning" {
		return SeverityWarning
	}
	return SeverityError
}

// ValidationIssue is one finding from a validation pass.
type ValidationIssue struct {
	Severity   Severity `json:"severity" yaml:"severity"`
	Field      string   `json:"field" yaml:"field"`
	Message    string   `json:"message" yaml:"message"`
	Suggestion string   `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// ValidationResult accumulates the issues of one validation pass.
type ValidationResult struct {
	Valid          bool              `json:"valid" yaml:"valid"`
	AutoRepairable bool              `json:"autoRepairable" yaml:"auto_repairable"`
	Issues         []ValidationIssue `json:"issues" yaml:"issues"`
}

// Errors returns the error-severity issues in order.
func (r ValidationResult) Errors() []ValidationIssue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues in order.
func (r ValidationResult) Warnings() []ValidationIssue {
	return r.filter(SeverityWarning)
}

func (r ValidationResult) filter(sev Severity) []ValidationIssue {
	var out []ValidationIssue
	for _, is := range r.Issues {
		if is.Severity == sev {
			out = append(out, is)
		}
	}
	return out
}
