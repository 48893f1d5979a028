// Package assemble decides, per question, which grant records, fetched web
// content, and internal financial data go into the completion prompt.
package assemble

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/springfield-isd/grants-assistant/internal/grants"
	"github.com/springfield-isd/grants-assistant/internal/model"
	"github.com/springfield-isd/grants-assistant/internal/webfetch"
)

// Context is the transient bundle assembled for one request and discarded
// after the completion call. Absent data is a nil field, never an error.
type Context struct {
	Grants    []model.Grant
	Fetched   *webfetch.Result
	Financial model.FinancialContext
}

// Assembler is the stateless per-request context policy. FinancialEnabled
// switches on attaching the district's financial document; when the store
// has none loaded the flag is a no-op.
type Assembler struct {
	Store             *grants.Store
	Fetcher           *webfetch.Fetcher
	FinancialEnabled  bool
	MaxContextGrants  int
	MaxFetchedContent int
}

// New creates an Assembler with the default limits.
func New(store *grants.Store, fetcher *webfetch.Fetcher) *Assembler {
	return &Assembler{
		Store:             store,
		Fetcher:           fetcher,
		MaxContextGrants:  grants.MaxContextGrants,
		MaxFetchedContent: 4000,
	}
}

// IsGeneralRequest classifies a question as a general/internal request:
// grant-writing help or questions about the district's own finances. General
// requests skip external-record lookup entirely. The substring heuristics
// are a known precision limitation; the general check deliberately runs
// before ID extraction so a question matching both goes general.
func IsGeneralRequest(question string) bool {
	q := strings.ToLower(question)
	return (strings.Contains(q, "write") && strings.Contains(q, "grant")) ||
		strings.Contains(q, "budget") ||
		(strings.Contains(q, "financial") && strings.Contains(q, "district")) ||
		strings.Contains(q, "funding need")
}

// Assemble runs the context policy for one question. First matching rule
// wins: general request, then specific opportunity ID, then keyword search.
func (a *Assembler) Assemble(ctx context.Context, question string) Context {
	out := Context{}
	if a.FinancialEnabled {
		out.Financial = a.Store.Financial()
	}

	if IsGeneralRequest(question) {
		zap.L().Debug("assemble: general request, skipping record lookup")
		return out
	}

	if id, ok := a.Store.FindOpportunityID(question); ok {
		grant, _ := a.Store.ByID(id)
		out.Grants = []model.Grant{grant}
		zap.L().Debug("assemble: specific grant identified", zap.String("opportunity_id", id))

		if grant.Link != "" {
			res := a.Fetcher.Fetch(ctx, grant.Link)
			if res.OK() {
				res.Text = truncate(res.Text, a.MaxFetchedContent)
			}
			out.Fetched = &res
			zap.L().Debug("assemble: fetched grant page",
				zap.String("url", grant.Link),
				zap.Bool("ok", res.OK()),
				zap.String("failure", string(res.Failure)),
			)
		}
		return out
	}

	out.Grants = a.Store.SelectByKeyword(question, a.MaxContextGrants)
	zap.L().Debug("assemble: keyword selection", zap.Int("matches", len(out.Grants)))
	return out
}

// truncate bounds s to max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
