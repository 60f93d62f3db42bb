package euportal

import "encoding/json"

type searchResponse struct {
	TotalResults int               `json:"totalResults"`
	Results      []json.RawMessage `json:"results"`
}

// Topic is one portal search result. The portal wraps nearly every metadata
// value in a single-element string array, status in a numeric code.
type Topic struct {
	Reference string        `json:"reference"`
	Title     string        `json:"title"`
	URL       string        `json:"url"`
	Metadata  topicMetadata `json:"metadata"`
}

type topicMetadata struct {
	Identifier       []string `json:"identifier"`
	Status           []string `json:"status"`
	CallTitle        []string `json:"callTitle"`
	Description      []string `json:"description"`
	StartDate        []string `json:"startDate"`
	DeadlineDate     []string `json:"deadlineDate"`
	PublicationDate  []string `json:"publicationDate"`
	Budget           []string `json:"budgetOverview"`
	FocusArea        []string `json:"focusArea"`
	Destination      []string `json:"destination"`
	TypeOfAction     []string `json:"typeOfAction"`
	BeneficiaryTypes []string `json:"typeOfBeneficiary"`
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
