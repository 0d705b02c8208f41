// Package compliance selects how parse problems surface to callers.
package compliance

import (
	"fmt"
	"strings"
)

// ComplianceMode selects how aggressively the library rejects ambiguity.
//
// Strict mode prefers explicit failure over silent acceptance: any diagnostic
// becomes the returned error. Permissive mode returns the partial result and
// leaves the problems in the report.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

func (m ComplianceMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "permissive"
}

// Parse resolves a configuration value. The empty string is Permissive.
func Parse(s string) (ComplianceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	}
	return Permissive, fmt.Errorf("unknown compliance mode %q", s)
}

// Apply returns the error a caller sees for a set of problems.
func (m ComplianceMode) Apply(problems error) error {
	if m == Strict {
		return problems
	}
	return nil
}
