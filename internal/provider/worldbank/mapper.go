package worldbank

import (
	"encoding/json"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

var statusTable = map[string]domain.GrantStatus{
	"active":   domain.StatusActive,
	"closed":   domain.StatusClosed,
	"pipeline": domain.StatusForecasted,
	"dropped":  domain.StatusArchived,
}

// Transform maps one project into a canonical grant. The World Bank lends to
// sovereign borrowers, so eligibility defaults to government even though the
// API never states it.
func (c *Client) Transform(raw provider.RawRecord) (*domain.NormalizedGrant, error) {
	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: err.Error()}
	}

	if p.ID == "" {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: "missing project id"}
	}
	if p.ProjectName == "" {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: "missing project name"}
	}

	grant := domain.Grant{
		SourceID:     SourceID,
		ExternalID:   p.ID,
		Title:        p.ProjectName,
		Status:       provider.MapStatus(statusTable, p.Status),
		FunderName:   provider.OptString(SourceName),
		Currency:     "USD",
		TotalFunding: provider.ParseAmount(p.TotalAmt),
		FundingMax:   provider.ParseAmount(p.GrantAmt),
		PostedDate:   provider.ParseDate(p.BoardApprovalDate),
		StartDate:    provider.ParseDate(p.BoardApprovalDate),
		EndDate:      provider.ParseDate(p.ClosingDate),
		GrantType:    provider.OptString(p.LendingInstr),
		RawData:      json.RawMessage(raw),
	}

	eligibilityNote := "sovereign lending implies government borrowers"
	ng := &domain.NormalizedGrant{
		Grant: grant,
		Details: &domain.Details{
			Description: provider.OptString(p.Abstract.CData),
		},
		Keywords: provider.ExtractKeywords(p.ProjectName, p.Abstract.CData),
		Eligibility: []domain.Eligibility{
			{EntityType: "government", Description: &eligibilityNote},
		},
	}

	for _, s := range p.Sectors {
		if s.Name == "" {
			continue
		}
		ng.Categories = append(ng.Categories, domain.Category{Kind: "sector", Name: s.Name})
	}
	for _, t := range p.Themes {
		if t.Name == "" {
			continue
		}
		ng.Categories = append(ng.Categories, domain.Category{Kind: "theme", Name: t.Name})
	}

	if p.CountryShortName != "" {
		ng.Locations = append(ng.Locations, domain.Location{
			Country: p.CountryShortName,
			Region:  provider.OptString(p.RegionName),
		})
	}

	for _, org := range []struct{ name, role string }{
		{p.Borrower, "borrower"},
		{p.ImplementingAgency, "implementing agency"},
	} {
		if org.name == "" {
			continue
		}
		role := org.role
		ng.Contacts = append(ng.Contacts, domain.Contact{
			Name: provider.OptString(org.name),
			Role: &role,
		})
	}

	return ng, nil
}
