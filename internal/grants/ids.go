package grants

import "regexp"

// Opportunity IDs on grants.gov are 6-7 digit numbers.
var opportunityIDRe = regexp.MustCompile(`\b(\d{6,7})\b`)

// FindOpportunityID scans text for 6-7 digit tokens and returns the first
// one, left to right, that exists in the dataset. Tokens that look like IDs
// but are not in the dataset are skipped; if none match, ok is false.
func (s *Store) FindOpportunityID(text string) (string, bool) {
	for _, id := range opportunityIDRe.FindAllString(text, -1) {
		if s.HasID(id) {
			return id, true
		}
	}
	return "", false
}
