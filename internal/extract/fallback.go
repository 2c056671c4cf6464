package extract

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/tripmazer/wayfarer/internal/budget"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

// NotSpecified fills text fields the request leaves open.
const NotSpecified = "Not specified"

var indianCities = []string{
	"mumbai", "delhi", "bangalore", "bengaluru", "chennai", "kolkata", "hyderabad",
	"pune", "goa", "jaipur", "ahmedabad", "kochi", "udaipur", "agra", "varanasi",
}

var toolKeywords = map[domain.ToolName][]string{
	domain.ToolLodging:   {"hotel", "stay", "accommodation", "lodging", "resort", "hostel"},
	domain.ToolItinerary: {"plan", "itinerary", "schedule", "activities", "sightseeing", "temple"},
	domain.ToolDining:    {"food", "restaurant", "dining", "eat", "meal", "cuisine"},
	domain.ToolTransport: {"transport", "flight", "train", "bus", "travel", "route"},
}

var interestKeywords = []string{
	"temples", "shopping", "nightlife", "beaches", "museums", "hiking",
	"history", "adventure", "food", "art", "wildlife",
}

var dietaryKeywords = []string{"vegetarian", "vegan", "halal", "kosher", "jain", "gluten-free"}

var (
	budgetWords   = regexp.MustCompile(`(?i)budget\s+(?:of\s+|is\s+)?(\d[\d,]*(?:\.\d+)?)`)
	peopleCount   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:people|persons|travell?ers|adults|friends|pax)\b`)
	datePattern   = regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{4}\b`)
	originPattern = regexp.MustCompile(`\bfrom\s+([A-Z][a-zA-Z]+(?:\s[A-Z][a-zA-Z]+)?)`)
	destPattern   = regexp.MustCompile(`\b(?:to|in|for|visit|visiting)\s+([A-Z][a-zA-Z]+(?:\s[A-Z][a-zA-Z]+)?)`)
	abroadWords   = regexp.MustCompile(`(?i)\b(international|abroad|overseas|visa)\b`)
)

// Fallback reads preferences from the query with keyword heuristics only.
// It never fails; fields it cannot read get defaults.
func Fallback(query string) domain.Preferences {
	lower := strings.ToLower(query)
	words := tokenize(lower)

	p := domain.Preferences{
		Budget:      fallbackBudget(query),
		Currency:    "$",
		Dates:       NotSpecified,
		Origin:      NotSpecified,
		Destination: NotSpecified,
		Travelers:   1,
	}

	if strings.Contains(query, "₹") || slices.Contains(words, "inr") || slices.Contains(words, "rs") || hasCity(words) {
		p.Currency = "₹"
	} else if strings.Contains(query, "€") {
		p.Currency = "€"
	} else if strings.Contains(query, "£") {
		p.Currency = "£"
	}

	switch {
	case strings.Contains(lower, "couple"):
		p.Travelers = 2
	case strings.Contains(lower, "family"):
		p.Travelers = 4
	}
	if m := peopleCount.FindStringSubmatch(query); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			p.Travelers = n
		}
	}

	if dates := datePattern.FindAllString(query, 2); len(dates) == 2 {
		p.Dates = dates[0] + " to " + dates[1]
	} else if len(dates) == 1 {
		p.Dates = dates[0]
	}

	if m := originPattern.FindStringSubmatch(query); m != nil {
		p.Origin = m[1]
	}
	for _, m := range destPattern.FindAllStringSubmatch(query, -1) {
		if m[1] != p.Origin {
			p.Destination = m[1]
			break
		}
	}

	p.RoutingOrder = keywordOrder(words)
	p.Dining = countKeywords(words, toolKeywords[domain.ToolDining]) > 0

	if abroadWords.MatchString(query) {
		p.International = true
	} else if p.Origin != NotSpecified && p.Destination != NotSpecified {
		p.International = isIndian(p.Origin) != isIndian(p.Destination)
	}

	for _, kw := range interestKeywords {
		if countKeywords(words, []string{kw}) > 0 {
			p.Interests = append(p.Interests, kw)
		}
	}
	for _, kw := range dietaryKeywords {
		if strings.Contains(lower, kw) {
			p.Dietary = kw
			break
		}
	}
	return p
}

// keywordOrder ranks the tools by how many of their keywords the query
// mentions. Ties keep the default order. Dining is left to the routing
// resolver, which adds it only when requested.
func keywordOrder(words []string) []string {
	tools := slices.Clone(domain.DefaultExecutionOrder)
	counts := make(map[domain.ToolName]int, len(tools))
	for _, t := range tools {
		counts[t] = countKeywords(words, toolKeywords[t])
	}
	slices.SortStableFunc(tools, func(a, b domain.ToolName) int {
		return counts[b] - counts[a]
	})

	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = string(t)
	}
	return out
}

func fallbackBudget(query string) float64 {
	if m := budgetWords.FindStringSubmatch(query); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return v
		}
	}
	prices := budget.Prices(query)
	if len(prices) == 0 {
		return 0
	}
	return slices.Max(prices)
}

// SplitDates splits "DD-MM-YYYY to DD-MM-YYYY" into its two ends.
func SplitDates(dates string) (string, string) {
	if dates == "" || dates == NotSpecified {
		return "", ""
	}
	start, end, found := strings.Cut(dates, " to ")
	if !found {
		return strings.TrimSpace(dates), ""
	}
	return strings.TrimSpace(start), strings.TrimSpace(end)
}

// countKeywords counts the keywords that start at least one word.
func countKeywords(words []string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		for _, w := range words {
			if strings.HasPrefix(w, kw) {
				n++
				break
			}
		}
	}
	return n
}

func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
}

func hasCity(words []string) bool {
	for _, w := range words {
		if slices.Contains(indianCities, w) {
			return true
		}
	}
	return false
}

func isIndian(place string) bool {
	return hasCity(tokenize(strings.ToLower(place)))
}
