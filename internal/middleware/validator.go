package middleware

import (
	"fmt"
	"mime"
	"regexp"
	"sort"
	"strings"
)

// Input validation and sanitization utilities

// ValidateMode checks that the analysis perspective is one of the two
// supported ones.
func ValidateMode(mode string) error {
	switch strings.ToLower(mode) {
	case "buyer", "seller":
		return nil
	}
	return fmt.Errorf("invalid mode: %s (allowed: buyer, seller)", mode)
}

// allowedCodes are the French legal codes an analysis may be grounded on.
var allowedCodes = map[string]bool{
	"Code civil":                          true,
	"Code de commerce":                    true,
	"Code de la consommation":             true,
	"Code du travail":                     true,
	"Code monétaire et financier":         true,
	"Code de la propriété intellectuelle": true,
}

// ValidateCodes checks every requested legal code against the allowed list.
func ValidateCodes(codes []string) error {
	for _, c := range codes {
		if !allowedCodes[strings.TrimSpace(c)] {
			return fmt.Errorf("invalid legal code: %s (allowed: %s)", c, strings.Join(AllowedCodes(), ", "))
		}
	}
	return nil
}

// AllowedCodes returns the legal codes clients may select, sorted for
// stable output.
func AllowedCodes() []string {
	out := make([]string, 0, len(allowedCodes))
	for c := range allowedCodes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// IsPDF reports whether the uploaded part looks like a PDF, by declared
// content type or filename extension.
func IsPDF(contentType, filename string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateRunID validates analysis run id format
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, strings.ToLower(id))
	if !matched {
		return fmt.Errorf("invalid run ID format")
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 30 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
