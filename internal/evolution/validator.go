package evolution

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitelore/evolvd/pkg/models"
)

// Validator runs the three acceptance gates over a candidate prompt.
// All gates are evaluated even after one fails so the stored result
// reports every problem at once.
type Validator struct {
	generator         Generator
	regressionQueries []string
	minResponseLength int
	injectionPhrases  []string
}

// NewValidator creates a validator from the engine configuration.
func NewValidator(gen Generator, cfg Config) *Validator {
	return &Validator{
		generator:         gen,
		regressionQueries: cfg.RegressionQueries,
		minResponseLength: cfg.MinRegressionResponseLen,
		injectionPhrases:  cfg.InjectionPhrases,
	}
}

// Validate checks the candidate against the boundary, regression and
// safety gates. Passed is true only when all three hold.
func (v *Validator) Validate(ctx context.Context, candidate string, boundaries []string) models.ValidationResult {
	result := models.ValidationResult{}

	result.BoundaryCheck = v.checkBoundaries(candidate, boundaries, &result)
	result.RegressionCheck = v.checkRegression(ctx, candidate, &result)
	result.SafetyCheck = v.checkSafety(candidate, &result)

	result.Passed = result.BoundaryCheck && result.RegressionCheck && result.SafetyCheck
	return result
}

// checkBoundaries verifies every immutable section still appears in the
// candidate. Matching is case-insensitive over the raw text.
func (v *Validator) checkBoundaries(candidate string, boundaries []string, result *models.ValidationResult) bool {
	lowered := strings.ToLower(candidate)
	ok := true
	for _, boundary := range boundaries {
		if !strings.Contains(lowered, strings.ToLower(boundary)) {
			ok = false
			result.Details = append(result.Details, fmt.Sprintf("boundary check: missing immutable section %q", boundary))
		}
	}
	return ok
}

// checkRegression runs the fixed panel of representative queries under
// the candidate prompt and requires a substantive answer for each. Any
// generation failure fails the gate.
func (v *Validator) checkRegression(ctx context.Context, candidate string, result *models.ValidationResult) bool {
	ok := true
	for _, query := range v.regressionQueries {
		response, err := v.generator.Generate(ctx, candidate, query)
		if err != nil {
			ok = false
			result.Details = append(result.Details, fmt.Sprintf("regression check: query %q failed: %v", query, err))
			continue
		}
		if len(strings.TrimSpace(response)) < v.minResponseLength {
			ok = false
			result.Details = append(result.Details, fmt.Sprintf("regression check: query %q produced a degenerate response (%d chars)", query, len(response)))
		}
	}
	return ok
}

// checkSafety scans the candidate for known injection phrasing.
func (v *Validator) checkSafety(candidate string, result *models.ValidationResult) bool {
	lowered := strings.ToLower(candidate)
	ok := true
	for _, phrase := range v.injectionPhrases {
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			ok = false
			result.Details = append(result.Details, fmt.Sprintf("safety check: candidate contains suspicious phrase %q", phrase))
		}
	}
	return ok
}
