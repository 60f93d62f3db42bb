package euportal

import (
	"encoding/json"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

var statusTable = map[string]domain.GrantStatus{
	"31094501": domain.StatusForecasted, // forthcoming
	"31094502": domain.StatusActive,     // open for submission
	"31094503": domain.StatusClosed,
}

// Transform maps one portal topic into a canonical grant.
func (c *Client) Transform(raw provider.RawRecord) (*domain.NormalizedGrant, error) {
	var t Topic
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: err.Error()}
	}

	externalID := first(t.Metadata.Identifier)
	if externalID == "" {
		externalID = t.Reference
	}
	if externalID == "" {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: "missing topic identifier"}
	}
	if t.Title == "" {
		return nil, &domain.NormalizationError{Source: SourceID, Reason: "missing title"}
	}

	description := first(t.Metadata.Description)

	grant := domain.Grant{
		SourceID:     SourceID,
		ExternalID:   externalID,
		Title:        t.Title,
		Status:       provider.MapStatus(statusTable, first(t.Metadata.Status)),
		FunderName:   provider.OptString("European Commission"),
		Currency:     "EUR",
		TotalFunding: provider.ParseAmount(first(t.Metadata.Budget)),
		PostedDate:   provider.ParseDate(first(t.Metadata.PublicationDate)),
		StartDate:    provider.ParseDate(first(t.Metadata.StartDate)),
		EndDate:      provider.ParseDate(first(t.Metadata.DeadlineDate)),
		GrantType:    provider.OptString(first(t.Metadata.TypeOfAction)),
		RawData:      json.RawMessage(raw),
	}

	ng := &domain.NormalizedGrant{
		Grant: grant,
		Details: &domain.Details{
			Description: provider.OptString(description),
			Purpose:     provider.OptString(first(t.Metadata.CallTitle)),
		},
		Keywords: provider.ExtractKeywords(t.Title, description),
		Locations: []domain.Location{
			{Country: "EU"},
		},
	}

	for _, fa := range t.Metadata.FocusArea {
		if fa == "" {
			continue
		}
		ng.Categories = append(ng.Categories, domain.Category{Kind: "theme", Name: fa})
	}
	for _, d := range t.Metadata.Destination {
		if d == "" {
			continue
		}
		ng.Categories = append(ng.Categories, domain.Category{Kind: "category", Name: d})
	}

	if len(t.Metadata.BeneficiaryTypes) == 0 {
		// Framework programmes target legal entities by default.
		ng.Eligibility = append(ng.Eligibility, domain.Eligibility{EntityType: "legal entity"})
	}
	for _, bt := range t.Metadata.BeneficiaryTypes {
		if bt == "" {
			continue
		}
		ng.Eligibility = append(ng.Eligibility, domain.Eligibility{EntityType: bt})
	}

	return ng, nil
}
