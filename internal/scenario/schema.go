package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// ErrSchema indicates a document that does not match the scenario schema.
var ErrSchema = errors.New("scenario does not match schema")

// ValidationError lists the schema violations of a document.
type ValidationError struct {
	Issues []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrSchema, strings.Join(e.Issues, "; "))
}

// Unwrap exposes ErrSchema.
func (e *ValidationError) Unwrap() error {
	return ErrSchema
}

// Validate checks a raw YAML scenario against the embedded schema. Schema
// violations are reported as a *ValidationError.
func Validate(raw []byte) error {
	var doc any

	decodeErr := yaml.Unmarshal(raw, &doc)
	if decodeErr != nil {
		return fmt.Errorf("decode scenario: %w", decodeErr)
	}

	if doc == nil {
		return ErrEmptyDocument
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate scenario: %w", err)
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))

	for _, verr := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return &ValidationError{Issues: issues}
}
