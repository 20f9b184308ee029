package config

import (
	"os"
	"strings"
)

const (
	ReceivablesPolicyAbort    = "abort"
	ReceivablesPolicyTolerate = "tolerate"
)

// ReceivablesFailurePolicy controls what happens when the receivables feed
// cannot be fetched: "abort" fails the whole run like any other phase,
// "tolerate" records zero receivables and lets the run continue.
//
// Set via env:
// - RECEIVABLES_FAILURE_POLICY=abort|tolerate
func ReceivablesFailurePolicy() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RECEIVABLES_FAILURE_POLICY")))
	if v == ReceivablesPolicyTolerate {
		return ReceivablesPolicyTolerate
	}
	return ReceivablesPolicyAbort
}

// SkipMigrations disables AutoMigrate on startup.
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
