// Package reputation turns raw reputation metrics into the ordinal labels
// rendered into screening prompts.
package reputation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidMetric is returned for metrics outside their domain (negative or NaN).
var ErrInvalidMetric = errors.New("invalid metric")

// Tier upper bounds, inclusive. Values above the last bound fall in the top tier.
var tierBounds = [...]float64{5, 15, 30, 45}

var (
	researcherTiers = [...]string{
		"Emerging Researcher",
		"Early Career Researcher",
		"Established Researcher",
		"Influential Researcher",
		"Leading Expert",
	}
	institutionTiers = [...]string{
		"Developing Institution",
		"Emerging Institution",
		"Established Institution",
		"Reputable Institution",
		"World-Class Institution",
	}
)

// tier returns the index of the tier v falls in; v must be non-negative.
func tier(v float64) int {
	for i, upper := range tierBounds {
		if v <= upper {
			return i
		}
	}
	return len(tierBounds)
}

// ResearcherTier names the tier of an h-index.
func ResearcherTier(h int) (string, error) {
	if h < 0 {
		return "", fmt.Errorf("%w: h-index cannot be negative (%d)", ErrInvalidMetric, h)
	}
	return researcherTiers[tier(float64(h))], nil
}

// HIndexLabel renders an h-index as "author h-index: 12, Early Career Researcher".
func HIndexLabel(h int) (string, error) {
	name, err := ResearcherTier(h)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("author h-index: %d, %s", h, name), nil
}

// InstitutionTier names the tier of an average-citation figure after rounding
// it half to even.
func InstitutionTier(avg float64) (string, error) {
	rounded, err := roundCitation(avg)
	if err != nil {
		return "", err
	}
	return institutionTiers[tier(rounded)], nil
}

// AverageCitationLabel renders an average citation as
// "institution average citation: 64.0, World-Class Institution".
// The value is rounded to an integer first and printed with one decimal.
func AverageCitationLabel(avg float64) (string, error) {
	rounded, err := roundCitation(avg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("institution average citation: %s, %s",
		strconv.FormatFloat(rounded, 'f', 1, 64), institutionTiers[tier(rounded)]), nil
}

func roundCitation(avg float64) (float64, error) {
	if math.IsNaN(avg) || avg < 0 {
		return 0, fmt.Errorf("%w: average citation cannot be negative (%v)", ErrInvalidMetric, avg)
	}
	return math.RoundToEven(avg), nil
}

// QuartileLabel renders a JCR quartile code. Only "Q1", "Q2" and "Q3" are
// recognised; every other value, including unknown codes, renders as Q4.
func QuartileLabel(q string) string {
	switch q {
	case "Q1":
		return "journal JCR: Q1, Top Level Journal"
	case "Q2":
		return "journal JCR: Q2, High Level Journal"
	case "Q3":
		return "journal JCR: Q3, Moderate Level Journal"
	default:
		return "journal JCR: Q4, Low Level Journal"
	}
}
