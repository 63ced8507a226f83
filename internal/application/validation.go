package application

import (
	"fmt"
	"strings"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", formatFieldName(fieldName)),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "pageID" -> "page ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"pageID":  "page ID",
		"userID":  "user ID",
		"title":   "title",
		"formula": "formula",
		"content": "content",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}
	return fieldName
}

// ValidateTitle checks that a page title fits on one line and can be used
// inside a [[page]] group heading.
func ValidateTitle(fieldName, title string) error {
	if err := ValidateRequired(fieldName, title); err != nil {
		return err
	}
	if strings.ContainsAny(title, "\n\r") {
		return &ValidationError{Field: fieldName, Message: "title must be a single line"}
	}
	if strings.Contains(title, "[[") || strings.Contains(title, "]]") {
		return &ValidationError{Field: fieldName, Message: "title cannot contain [[ or ]]"}
	}
	return nil
}

// ValidateLineNumber checks that line addresses one of count lines
func ValidateLineNumber(fieldName string, line, count int) error {
	if line < 0 || line >= count {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("line %d out of range (page has %d lines)", line, count),
		}
	}
	return nil
}
