package utils

import "strings"

// Blacklist holds title terms that disqualify a record or track from being searched
type Blacklist struct {
	terms []string
}

// NewBlacklist creates a blacklist from configured terms, dropping empty entries
func NewBlacklist(terms []string) *Blacklist {
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term != "" {
			cleaned = append(cleaned, term)
		}
	}
	return &Blacklist{terms: cleaned}
}

// IsBlacklisted checks if a title contains any blacklist term
// Returns (isBlacklisted, matchedTerm)
func (b *Blacklist) IsBlacklisted(title string) (bool, string) {
	titleLower := strings.ToLower(title)

	for _, term := range b.terms {
		if strings.Contains(titleLower, strings.ToLower(term)) {
			return true, term
		}
	}

	return false, ""
}
