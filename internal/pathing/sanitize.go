package pathing

import (
	"strings"
	"unicode"

	apperrors "edrs-docstore/pkg/errors"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxSegmentLen     = 255
	asciiControlStart = 32
	asciiDelete       = 127

	errProjectNameEmpty        = "project name is empty after sanitization"
	errProjectNameTooLong      = "project name must not exceed 255 characters"
	errProjectNameTraversal    = "project name cannot contain path traversal"
	errFileNameEmpty           = "file name is empty after sanitization"
	errFileNameTooLong         = "file name must not exceed 255 characters"
	errFileNameTraversal       = "file name cannot contain path traversal"
	errFileNamePathSeparator   = "file name cannot contain path separators"
	errSegmentControlChars     = "name cannot contain control characters"
	errSegmentDiacriticsFailed = "name contains invalid unicode"
)

// SanitizeProjectName lowercases the name, turns spaces into underscores and slashes into
// hyphens, folds diacritics and drops anything outside [a-z0-9._-].
func SanitizeProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if hasTraversal(name) {
		return "", apperrors.PathTraversal(errProjectNameTraversal)
	}
	if hasControlChars(name) {
		return "", apperrors.Validation(errSegmentControlChars)
	}

	folded, err := foldDiacritics(strings.ToLower(name))
	if err != nil {
		return "", apperrors.Validation(errSegmentDiacriticsFailed)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '/' || r == '\\':
			b.WriteByte('-')
		case isKeyRune(r):
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" {
		return "", apperrors.Validation(errProjectNameEmpty)
	}
	if isDotsOnly(out) {
		return "", apperrors.PathTraversal(errProjectNameTraversal)
	}
	if len(out) > maxSegmentLen {
		return "", apperrors.Validation(errProjectNameTooLong)
	}
	return out, nil
}

// SanitizeFilename keeps the caller's casing. Spaces become underscores, parentheses and
// anything outside [A-Za-z0-9._-] are dropped. Separators are rejected outright.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if hasTraversal(name) {
		return "", apperrors.PathTraversal(errFileNameTraversal)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", apperrors.Validation(errFileNamePathSeparator)
	}
	if hasControlChars(name) {
		return "", apperrors.Validation(errSegmentControlChars)
	}

	folded, err := foldDiacritics(name)
	if err != nil {
		return "", apperrors.Validation(errSegmentDiacriticsFailed)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case isKeyRune(r):
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" {
		return "", apperrors.Validation(errFileNameEmpty)
	}
	if isDotsOnly(out) {
		return "", apperrors.PathTraversal(errFileNameTraversal)
	}
	if len(out) > maxSegmentLen {
		return "", apperrors.Validation(errFileNameTooLong)
	}
	return out, nil
}

// hasTraversal reports whether any /- or \-separated segment of s is "." or "..".
func hasTraversal(s string) bool {
	segments := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if r < asciiControlStart || r == asciiDelete {
			return true
		}
	}
	return false
}

func isDotsOnly(s string) bool {
	return strings.Trim(s, ".") == ""
}

func isKeyRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '.' || r == '_' || r == '-'
}

// isSafeSegment is the stricter check applied to configured values such as the root and role folders.
func isSafeSegment(s string) bool {
	if s == "" || len(s) > maxSegmentLen || isDotsOnly(s) {
		return false
	}
	for _, r := range s {
		if !isKeyRune(r) {
			return false
		}
	}
	return true
}

// foldDiacritics maps "Ruwais Résidence" to "Ruwais Residence". The chain is stateful, so
// a fresh one is built per call.
func foldDiacritics(s string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	return out, err
}
