// Package normalizer turns raw provider documents into canonical Provider
// records. Every resolver is a pure function of its input document.
package normalizer

import (
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/document"
)

// nestedForm is the sub-mapping older intake forms wrote their fields into.
const nestedForm = "formData"

// naSentinel is what some forms stored instead of leaving a field blank.
const naSentinel = "N/A"

// fieldPath addresses one candidate field, possibly inside nested mappings.
type fieldPath []string

func top(key string) fieldPath { return fieldPath{key} }

func form(keys ...string) fieldPath { return append(fieldPath{nestedForm}, keys...) }

func nested(keys ...string) fieldPath { return fieldPath(keys) }

func (p fieldPath) String() string { return strings.Join(p, ".") }

func (p fieldPath) lookup(doc document.Document) document.Value {
	return doc.Path(p...)
}

// validName reports whether v is usable as a display name: a string, not
// the "N/A" sentinel, and not blank.
func validName(v document.Value) (string, bool) {
	s, ok := v.AsString()
	if !ok || s == naSentinel || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// presentString reports a non-blank string, trimmed.
func presentString(v document.Value) (string, bool) {
	s, ok := v.AsString()
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// firstOf returns the first candidate accepted by valid, in cascade order.
func firstOf(doc document.Document, cascade []fieldPath, valid func(document.Value) (string, bool)) (string, bool) {
	for _, path := range cascade {
		if s, ok := valid(path.lookup(doc)); ok {
			return s, true
		}
	}
	return "", false
}

// splitParts splits on commas and trims each part.
func splitParts(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func strPtr(s string) *string { return &s }
