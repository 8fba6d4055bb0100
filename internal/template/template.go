// Package template provides the attack template catalog: the model,
// built-in templates, YAML pack loading, and registries backed by memory
// or SQLite. Templates are resolved by id at campaign execution time.
package template

import (
	"fmt"
	"time"
)

// Template is a named attack payload resolved by id at execution time.
type Template struct {
	// Identity
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Categorization
	Category Category `json:"category" yaml:"category"`
	Severity Severity `json:"severity" yaml:"severity"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Content
	Prompt string `json:"prompt" yaml:"prompt"`

	// Success detection, evaluated against the target's response
	Indicators []Indicator `json:"indicators,omitempty" yaml:"indicators,omitempty"`

	// Status
	BuiltIn   bool      `json:"built_in" yaml:"built_in"`
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Category represents the type of attack a template performs.
type Category string

const (
	CategoryJailbreak             Category = "jailbreak"
	CategoryPromptInjection       Category = "prompt_injection"
	CategoryDataExtraction        Category = "data_extraction"
	CategoryRoleplayCoercion      Category = "roleplay_coercion"
	CategoryEncodingBypass        Category = "encoding_bypass"
	CategoryInformationDisclosure Category = "information_disclosure"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryJailbreak, CategoryPromptInjection, CategoryDataExtraction,
		CategoryRoleplayCoercion, CategoryEncodingBypass, CategoryInformationDisclosure:
		return true
	default:
		return false
	}
}

// Severity grades the impact of a successful attack.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// IndicatorType selects how an indicator is evaluated.
type IndicatorType string

const (
	// IndicatorContains matches when the response contains the value,
	// case-insensitively.
	IndicatorContains IndicatorType = "contains"

	// IndicatorNotContains matches when the response does not contain the
	// value. Used for refusal detection: no refusal phrase means the attack
	// landed.
	IndicatorNotContains IndicatorType = "not_contains"

	// IndicatorRegex matches the response against a regular expression.
	IndicatorRegex IndicatorType = "regex"
)

// Indicator declares one success criterion for a template.
type Indicator struct {
	Type   IndicatorType `json:"type" yaml:"type"`
	Value  string        `json:"value" yaml:"value"`
	Weight float64       `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Validate checks that the template has all required fields and known
// category/severity values.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("template %q: name is required", t.ID)
	}
	if t.Prompt == "" {
		return fmt.Errorf("template %q: prompt is required", t.ID)
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("template %q: unknown category %q", t.ID, t.Category)
	}
	if t.Severity != "" && !t.Severity.IsValid() {
		return fmt.Errorf("template %q: unknown severity %q", t.ID, t.Severity)
	}
	for i, ind := range t.Indicators {
		switch ind.Type {
		case IndicatorContains, IndicatorNotContains, IndicatorRegex:
		default:
			return fmt.Errorf("template %q: indicator %d has unknown type %q", t.ID, i, ind.Type)
		}
		if ind.Value == "" {
			return fmt.Errorf("template %q: indicator %d has empty value", t.ID, i)
		}
	}
	return nil
}
