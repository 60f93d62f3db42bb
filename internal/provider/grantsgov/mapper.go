package grantsgov

import (
	"encoding/json"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

var statusTable = map[string]domain.GrantStatus{
	"posted":     domain.StatusActive,
	"forecasted": domain.StatusForecasted,
	"closed":     domain.StatusClosed,
	"archived":   domain.StatusArchived,
}

// Transform maps one search hit into a canonical grant.
func (c *Client) Transform(raw provider.RawRecord) (*domain.NormalizedGrant, error) {
	var opp Opportunity
	if err := json.Unmarshal(raw, &opp); err != nil {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: err.Error()}
	}

	externalID := opp.ID.String()
	if externalID == "" {
		externalID = opp.Number
	}
	if externalID == "" {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: "missing opportunity id"}
	}
	if opp.Title == "" {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: "missing title"}
	}

	grant := domain.Grant{
		SourceID:     SourceID,
		ExternalID:   externalID,
		Title:        opp.Title,
		Status:       provider.MapStatus(statusTable, opp.OppStatus),
		FunderName:   provider.OptString(opp.AgencyName),
		Currency:     "USD",
		FundingMin:   provider.ParseAmount(opp.AwardFloor),
		FundingMax:   provider.ParseAmount(opp.AwardCeiling),
		TotalFunding: provider.ParseAmount(opp.EstimatedFunding),
		PostedDate:   provider.ParseDate(firstNonEmpty(opp.PostedDate, opp.OpenDate)),
		StartDate:    provider.ParseDate(opp.OpenDate),
		EndDate:      provider.ParseDate(opp.CloseDate),
		GrantType:    provider.OptString(opp.DocType),
		RawData:      json.RawMessage(raw),
	}

	ng := &domain.NormalizedGrant{
		Grant: grant,
		Details: &domain.Details{
			Description: provider.OptString(opp.Synopsis),
			Purpose:     provider.OptString(opp.Purpose),
		},
		Keywords: provider.ExtractKeywords(opp.Title, opp.Synopsis),
		Locations: []domain.Location{
			{Country: "US"},
		},
	}

	for _, cat := range opp.FundingCategories {
		if cat == "" {
			continue
		}
		ng.Categories = append(ng.Categories, domain.Category{Kind: "category", Name: cat})
	}

	for _, at := range opp.ApplicantTypes {
		if at == "" {
			continue
		}
		ng.Eligibility = append(ng.Eligibility, domain.Eligibility{EntityType: at})
	}

	if opp.AgencyContact.Name != "" || opp.AgencyContact.Email != "" {
		role := "agency contact"
		ng.Contacts = append(ng.Contacts, domain.Contact{
			Name:  provider.OptString(opp.AgencyContact.Name),
			Email: provider.OptString(opp.AgencyContact.Email),
			Phone: provider.OptString(opp.AgencyContact.Phone),
			Role:  &role,
		})
	}

	return ng, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
