package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/springfield-isd/grants-assistant/internal/model"
)

const csvHeader = "opportunity_id,opportunity_title,summary_description,category,opportunity_status,applicant_types,estimated_total_program_funding\n"

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func runIngest(t *testing.T, dir string) []model.Grant {
	t.Helper()
	out := filepath.Join(dir, "out", "grants.json")
	_, err := Run(context.Background(), filepath.Join(dir, "grants-search-*.csv"), out)
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var grants []model.Grant
	require.NoError(t, json.Unmarshal(raw, &grants))
	return grants
}

func TestRun_FiltersStatusAndEligibility(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "grants-search-1.csv", csvHeader+
		"100001,Posted ISD Grant,desc,Education,posted,independent_school_districts;nonprofits,50000\n"+
		"100002,Forecasted ISD Grant,desc,Education,Forecasted,Independent_School_Districts,60000\n"+
		"100003,Closed Grant,desc,Education,closed,independent_school_districts,70000\n"+
		"100004,Wrong Applicants,desc,Education,posted,small_businesses,80000\n")

	grants := runIngest(t, dir)
	require.Len(t, grants, 2)
	assert.Equal(t, "100001", grants[0].OpportunityID)
	assert.Equal(t, "100002", grants[1].OpportunityID)
}

func TestRun_MapsFieldsAndSynthesizesLink(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "grants-search-1.csv", csvHeader+
		"100001,STEM Lab Upgrade,Supports classroom technology,Education,posted,independent_school_districts;public_schools,125000\n")

	grants := runIngest(t, dir)
	require.Len(t, grants, 1)
	g := grants[0]
	assert.Equal(t, "STEM Lab Upgrade", g.OpportunityTitle)
	assert.Equal(t, "Supports classroom technology", g.Description)
	assert.Equal(t, "Education", g.OpportunityCategory)
	assert.Equal(t, []string{"independent_school_districts", "public_schools"}, g.EligibilityCodes)
	require.NotNil(t, g.EstimatedFunding)
	assert.Equal(t, "125000", *g.EstimatedFunding)
	assert.Equal(t, "https://simpler.grants.gov/opportunity//100001", g.Link)
}

func TestRun_DropsRowsWithoutOpportunityID(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "grants-search-1.csv", csvHeader+
		",No ID,desc,Education,posted,independent_school_districts,0\n"+
		"100001,Has ID,desc,Education,posted,independent_school_districts,0\n")

	grants := runIngest(t, dir)
	require.Len(t, grants, 1)
	assert.Equal(t, "100001", grants[0].OpportunityID)
}

func TestRun_DeduplicatesAcrossFilesFirstWins(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "grants-search-1.csv", csvHeader+
		"100001,First Title,desc,Education,posted,independent_school_districts,0\n")
	writeCSV(t, dir, "grants-search-2.csv", csvHeader+
		"100001,Second Title,desc,Education,posted,independent_school_districts,0\n"+
		"100002,Unique,desc,Education,posted,independent_school_districts,0\n")

	grants := runIngest(t, dir)
	require.Len(t, grants, 2)
	assert.Equal(t, "First Title", grants[0].OpportunityTitle)
	assert.Equal(t, "100002", grants[1].OpportunityID)
}

func TestRun_NoMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), filepath.Join(dir, "grants-search-*.csv"), filepath.Join(dir, "out.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no csv files")
}

func TestRun_MissingOptionalColumnsTolerated(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "grants-search-1.csv",
		"opportunity_id,opportunity_title\n"+
			"100001,Sparse Export\n")

	grants := runIngest(t, dir)
	require.Len(t, grants, 1)
	assert.Equal(t, "Sparse Export", grants[0].OpportunityTitle)
	assert.Equal(t, []string{}, grants[0].EligibilityCodes)
	assert.Nil(t, grants[0].AgencyName)
}
