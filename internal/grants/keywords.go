package grants

import (
	"regexp"
	"strings"

	"github.com/springfield-isd/grants-assistant/internal/model"
)

// MaxContextGrants caps keyword selection so prompt context stays bounded.
const MaxContextGrants = 5

var wordRe = regexp.MustCompile(`\b\w+\b`)

// stopWords are articles, pronouns, and domain-generic terms that match
// nearly every record and carry no selective power.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "in": {}, "on": {},
	"for": {}, "of": {}, "and": {}, "to": {}, "what": {}, "who": {},
	"tell": {}, "me": {}, "about": {}, "grant": {}, "grants": {},
	"more": {}, "details": {}, "detail": {}, "help": {}, "write": {},
	"financial": {}, "budget": {}, "funding": {},
}

// ExtractKeywords tokenizes text on word boundaries, lower-cases, and drops
// stop words and tokens of two characters or fewer. Empty input yields an
// empty set.
func ExtractKeywords(text string) map[string]struct{} {
	keywords := make(map[string]struct{})
	if text == "" {
		return keywords
	}
	for _, word := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if len(word) <= 2 {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

// SelectByKeyword returns up to maxResults records whose title, description,
// or category contains any keyword of the question. Records are scanned in
// stored order and selection stops at maxResults; there is no ranking beyond
// source order. A question with no usable keywords selects nothing.
func (s *Store) SelectByKeyword(question string, maxResults int) []model.Grant {
	keywords := ExtractKeywords(question)
	if len(keywords) == 0 {
		return nil
	}

	var selected []model.Grant
	for _, g := range s.records {
		searchText := strings.ToLower(g.OpportunityTitle + " " + g.Description + " " + g.OpportunityCategory)
		for kw := range keywords {
			if strings.Contains(searchText, kw) {
				selected = append(selected, g)
				break
			}
		}
		if len(selected) >= maxResults {
			break
		}
	}
	return selected
}
