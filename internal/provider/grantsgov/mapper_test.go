package grantsgov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

const fullHit = `{
	"id": 358732,
	"number": "USDA-NIFA-SRGP-012345",
	"title": "Rural Water Infrastructure Research Program",
	"agencyName": "National Institute of Food and Agriculture",
	"oppStatus": "posted",
	"openDate": "09/01/2026",
	"closeDate": "12/15/2026",
	"postedDate": "08/20/2026",
	"synopsis": "Supports applied research on rural drinking water systems.",
	"purpose": "Improve rural water quality.",
	"docType": "synopsis",
	"awardFloor": "$50,000",
	"awardCeiling": "$1,500,000",
	"estimatedFunding": "$10,000,000",
	"fundingCategories": ["Agriculture", "Environment"],
	"applicantTypes": ["State governments", "Nonprofits"],
	"agencyContact": {"name": "Grants Desk", "email": "grants@nifa.usda.gov", "phone": "202-555-0100"}
}`

func TestTransform_FullRecord(t *testing.T) {
	client := newTestClient("http://unused")

	ng, err := client.Transform(provider.RawRecord(fullHit))
	require.NoError(t, err)

	g := ng.Grant
	assert.Equal(t, SourceID, g.SourceID)
	assert.Equal(t, "358732", g.ExternalID)
	assert.Equal(t, "Rural Water Infrastructure Research Program", g.Title)
	assert.Equal(t, domain.StatusActive, g.Status)
	assert.Equal(t, "USD", g.Currency)

	require.NotNil(t, g.FunderName)
	assert.Equal(t, "National Institute of Food and Agriculture", *g.FunderName)

	require.NotNil(t, g.FundingMin)
	assert.Equal(t, 50000.0, *g.FundingMin)
	require.NotNil(t, g.FundingMax)
	assert.Equal(t, 1500000.0, *g.FundingMax)
	require.NotNil(t, g.TotalFunding)
	assert.Equal(t, 10000000.0, *g.TotalFunding)

	require.NotNil(t, g.PostedDate)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), g.PostedDate.UTC())
	require.NotNil(t, g.EndDate)
	assert.Equal(t, time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC), g.EndDate.UTC())

	assert.JSONEq(t, fullHit, string(g.RawData))

	require.NotNil(t, ng.Details)
	require.NotNil(t, ng.Details.Description)
	assert.Contains(t, *ng.Details.Description, "rural drinking water")

	assert.Equal(t, []domain.Category{
		{Kind: "category", Name: "Agriculture"},
		{Kind: "category", Name: "Environment"},
	}, ng.Categories)

	assert.Equal(t, []domain.Eligibility{
		{EntityType: "State governments"},
		{EntityType: "Nonprofits"},
	}, ng.Eligibility)

	require.Len(t, ng.Contacts, 1)
	assert.Equal(t, "grants@nifa.usda.gov", *ng.Contacts[0].Email)
	assert.Equal(t, "agency contact", *ng.Contacts[0].Role)

	require.Len(t, ng.Locations, 1)
	assert.Equal(t, "US", ng.Locations[0].Country)

	assert.NotEmpty(t, ng.Keywords)
}

func TestTransform_StatusMapping(t *testing.T) {
	client := newTestClient("http://unused")

	tests := []struct {
		raw  string
		want domain.GrantStatus
	}{
		{"posted", domain.StatusActive},
		{"forecasted", domain.StatusForecasted},
		{"closed", domain.StatusClosed},
		{"archived", domain.StatusArchived},
		{"something-new", domain.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ng, err := client.Transform(provider.RawRecord(
				`{"id":1,"title":"T","oppStatus":"` + tt.raw + `"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ng.Grant.Status)
		})
	}
}

func TestTransform_FallsBackToOpportunityNumber(t *testing.T) {
	client := newTestClient("http://unused")

	ng, err := client.Transform(provider.RawRecord(
		`{"number":"ABC-123","title":"No numeric id"}`))
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", ng.Grant.ExternalID)
}

func TestTransform_MissingIdentity(t *testing.T) {
	client := newTestClient("http://unused")

	_, err := client.Transform(provider.RawRecord(`{"title":"Orphan"}`))
	var ne *domain.NormalizationError
	require.ErrorAs(t, err, &ne)

	_, err = client.Transform(provider.RawRecord(`{"id":9}`))
	require.ErrorAs(t, err, &ne)

	_, err = client.Transform(provider.RawRecord(`{not json`))
	require.ErrorAs(t, err, &ne)
}

func TestTransform_UnparseableAmountsAreNil(t *testing.T) {
	client := newTestClient("http://unused")

	ng, err := client.Transform(provider.RawRecord(
		`{"id":2,"title":"T","awardFloor":"none","awardCeiling":"","estimatedFunding":"TBD"}`))
	require.NoError(t, err)

	assert.Nil(t, ng.Grant.FundingMin)
	assert.Nil(t, ng.Grant.FundingMax)
	assert.Nil(t, ng.Grant.TotalFunding)
}

func TestTransform_PostedDateFallsBackToOpenDate(t *testing.T) {
	client := newTestClient("http://unused")

	ng, err := client.Transform(provider.RawRecord(
		`{"id":3,"title":"T","openDate":"05/01/2026"}`))
	require.NoError(t, err)

	require.NotNil(t, ng.Grant.PostedDate)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), ng.Grant.PostedDate.UTC())
}
