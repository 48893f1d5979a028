// Package ingest converts raw grants.gov CSV search exports into the JSON
// dataset the server loads at startup.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/springfield-isd/grants-assistant/internal/model"
)

// Filters applied to every row.
const (
	eligibilityTarget = "independent_school_districts"
	linkPrefix        = "https://simpler.grants.gov/opportunity//"
)

var statusTargets = map[string]struct{}{
	"posted":     {},
	"forecasted": {},
}

// columnMapping maps CSV headers to the functions that set the matching
// Grant field. summary_description feeds the description used for keyword
// matching.
var columnMapping = map[string]func(g *model.Grant, v string){
	"opportunity_id":                    func(g *model.Grant, v string) { g.OpportunityID = v },
	"opportunity_title":                 func(g *model.Grant, v string) { g.OpportunityTitle = v },
	"opportunity_number":                func(g *model.Grant, v string) { g.OpportunityNumber = optional(v) },
	"agency_name":                       func(g *model.Grant, v string) { g.AgencyName = optional(v) },
	"summary_description":               func(g *model.Grant, v string) { g.Description = v },
	"post_date":                         func(g *model.Grant, v string) { g.PostDate = optional(v) },
	"close_date":                        func(g *model.Grant, v string) { g.CloseDate = optional(v) },
	"close_date_description":            func(g *model.Grant, v string) { g.CloseDateExplanation = optional(v) },
	"estimated_total_program_funding":   func(g *model.Grant, v string) { g.EstimatedFunding = optional(v) },
	"award_ceiling":                     func(g *model.Grant, v string) { g.AwardCeiling = optional(v) },
	"award_floor":                       func(g *model.Grant, v string) { g.AwardFloor = optional(v) },
	"applicant_types":                   func(g *model.Grant, v string) { g.EligibilityCodes = splitCodes(v) },
	"applicant_eligibility_description": func(g *model.Grant, v string) { g.EligibilityDesc = optional(v) },
	"opportunity_assistance_listings":   func(g *model.Grant, v string) { g.CFDANumbers = optional(v) },
	"category":                          func(g *model.Grant, v string) { g.OpportunityCategory = v },
	"funding_instruments":               func(g *model.Grant, v string) { g.FundingInstrumentType = optional(v) },
	"opportunity_status":                func(g *model.Grant, v string) { g.OpportunityStatus = optional(v) },
	"additional_info_url":               func(g *model.Grant, v string) { g.AdditionalInfoURL = optional(v) },
	"expected_number_of_awards":         func(g *model.Grant, v string) { g.ExpectedAwards = optional(v) },
}

// Run finds CSV files matching pattern, filters and transforms them, and
// writes the combined deduplicated dataset to outPath. Files are parsed
// concurrently; the merge keeps deterministic file order and first-wins
// deduplication by opportunity ID.
func Run(ctx context.Context, pattern, outPath string) (int, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return 0, eris.Wrap(err, "ingest: glob csv files")
	}
	if len(files) == 0 {
		return 0, eris.Errorf("ingest: no csv files match pattern %s", pattern)
	}
	sort.Strings(files)

	perFile := make([][]model.Grant, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, file := range files {
		g.Go(func() error {
			f, err := os.Open(file)
			if err != nil {
				return eris.Wrapf(err, "ingest: open %s", file)
			}
			defer f.Close()

			grants, err := parseFile(gCtx, f)
			if err != nil {
				return eris.Wrapf(err, "ingest: parse %s", file)
			}
			zap.L().Info("ingest: parsed file",
				zap.String("file", file),
				zap.Int("kept", len(grants)),
			)
			perFile[i] = grants
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{})
	var combined []model.Grant
	for _, grants := range perFile {
		for _, grant := range grants {
			if _, dup := seen[grant.OpportunityID]; dup {
				continue
			}
			seen[grant.OpportunityID] = struct{}{}
			combined = append(combined, grant)
		}
	}

	if err := writeJSON(outPath, combined); err != nil {
		return 0, err
	}
	zap.L().Info("ingest: dataset written",
		zap.String("path", outPath),
		zap.Int("records", len(combined)),
	)
	return len(combined), nil
}

// parseFile reads one CSV export and returns the rows that pass the status
// and eligibility filters, mapped to Grant records. Rows without an
// opportunity ID are dropped. Deduplication happens at merge time, not here.
func parseFile(ctx context.Context, r io.Reader) ([]model.Grant, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}

	statusIdx, hasStatus := colIdx["opportunity_status"]
	eligIdx, hasElig := colIdx["applicant_types"]
	if !hasStatus {
		zap.L().Warn("ingest: status column missing, skipping status filter")
	}
	if !hasElig {
		zap.L().Warn("ingest: eligibility column missing, skipping eligibility filter")
	}

	var out []model.Grant
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Tolerate bad lines the way the source exports require.
			zap.L().Debug("ingest: skipping malformed row", zap.Error(err))
			continue
		}

		if hasStatus {
			status := strings.ToLower(strings.TrimSpace(field(row, statusIdx)))
			if _, ok := statusTargets[status]; !ok {
				continue
			}
		}
		if hasElig {
			elig := strings.ToLower(field(row, eligIdx))
			if !strings.Contains(elig, eligibilityTarget) {
				continue
			}
		}

		var grant model.Grant
		for col, set := range columnMapping {
			idx, ok := colIdx[col]
			if !ok {
				continue
			}
			set(&grant, strings.TrimSpace(field(row, idx)))
		}
		if grant.OpportunityID == "" {
			continue
		}
		if grant.EligibilityCodes == nil {
			grant.EligibilityCodes = []string{}
		}
		grant.Link = linkPrefix + grant.OpportunityID
		out = append(out, grant)
	}
	return out, nil
}

func writeJSON(path string, grants []model.Grant) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "ingest: create output dir %s", dir)
		}
	}
	data, err := json.MarshalIndent(grants, "", "    ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal dataset")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "ingest: write %s", path)
	}
	return nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func splitCodes(v string) []string {
	var codes []string
	for _, c := range strings.Split(v, ";") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	if codes == nil {
		codes = []string{}
	}
	return codes
}
