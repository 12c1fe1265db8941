// internal/app/system/normalize/normalize.go
//
// Package normalize provides canonicalization helpers for user-supplied
// string fields. Every value that ends up in a Mongo query filter or a
// unique index should pass through here first so comparisons behave the
// same regardless of how the client cased or padded the input.
package normalize

import "strings"

// Email canonicalizes an email address: trims whitespace and lowercases.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role canonicalizes a role value (patient, doctor, admin).
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status canonicalizes a status value (e.g. scheduled, completed).
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Gender canonicalizes a gender value.
func Gender(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-form query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
