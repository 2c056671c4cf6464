package budget

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	// A currency marker followed by an amount: "₹2,500", "$ 120.50", "Rs. 900", "INR 4000".
	pricePrefixed = regexp.MustCompile(`(?i)(?:₹|\$|€|£|\b(?:rs\.?|inr|usd|eur|gbp))\s?(\d[\d,]*(?:\.\d+)?)`)
	// An amount followed by a currency word: "2500 INR", "120 dollars".
	// Symbols only ever prefix an amount; "Room 101 ₹3,500" quotes one price.
	priceSuffixed = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s?(?:inr|usd|eur|gbp|rupees|dollars|euros)\b`)

	overBudget = regexp.MustCompile(`(?i)(exceed(?:s|ed|ing)?\s+(?:the\s+|your\s+)?(?:allocated\s+)?budget|over\s+(?:the\s+|your\s+)?budget|budget\s+(?:is\s+|was\s+)?exceeded)`)
)

// Prices returns every positive amount tagged with a currency in text, in
// order of appearance.
func Prices(text string) []float64 {
	type match struct {
		at    int
		value float64
	}
	var found []match
	add := func(text string, loc []int) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(text[loc[2]:loc[3]], ",", ""), 64)
		if err == nil && v > 0 {
			found = append(found, match{at: loc[0], value: v})
		}
	}

	// Prefixed spans are blanked before the suffix pass so one quote such as
	// "INR 4000 rupees" is not counted twice.
	masked := []byte(text)
	for _, loc := range pricePrefixed.FindAllStringSubmatchIndex(text, -1) {
		add(text, loc)
		for i := loc[0]; i < loc[1]; i++ {
			masked[i] = ' '
		}
	}
	rest := string(masked)
	for _, loc := range priceSuffixed.FindAllStringSubmatchIndex(rest, -1) {
		add(rest, loc)
	}

	slices.SortStableFunc(found, func(a, b match) int { return a.at - b.at })
	out := make([]float64, 0, len(found))
	for _, m := range found {
		out = append(out, m.value)
	}
	return out
}

// CheapestPrice returns the lowest price found in text.
func CheapestPrice(text string) (float64, bool) {
	prices := Prices(text)
	if len(prices) == 0 {
		return 0, false
	}
	return slices.Min(prices), true
}

// EstimateSpend guesses what a tool result costs: the cheapest quoted price
// times the traveler count, or fallback×allocation when no price is quoted.
// The bool reports whether a price was found.
func EstimateSpend(text string, travelers int, allocation, fallback float64) (float64, bool) {
	if travelers < 1 {
		travelers = 1
	}
	if p, ok := CheapestPrice(text); ok {
		return p * float64(travelers), true
	}
	return allocation * fallback, false
}

// MentionsOverBudget reports whether a tool says its options exceed the budget.
func MentionsOverBudget(text string) bool {
	return overBudget.MatchString(text)
}
