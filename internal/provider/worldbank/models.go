package worldbank

import "encoding/json"

type projectsResponse struct {
	Total    json.Number                `json:"total"`
	Projects map[string]json.RawMessage `json:"projects"`
}

// Project is one World Bank project. Monetary amounts arrive as
// comma-grouped strings ("250,000,000"); the abstract is wrapped in a
// cdata envelope.
type Project struct {
	ID                 string       `json:"id"`
	ProjectName        string       `json:"project_name"`
	Status             string       `json:"status"`
	BoardApprovalDate  string       `json:"boardapprovaldate"`
	ClosingDate        string       `json:"closingdate"`
	TotalAmt           string       `json:"totalamt"`
	GrantAmt           string       `json:"grantamt"`
	LendingInstr       string       `json:"lendinginstr"`
	Borrower           string       `json:"borrower"`
	ImplementingAgency string       `json:"impagency"`
	CountryShortName   string       `json:"countryshortname"`
	RegionName         string       `json:"regionname"`
	Sectors            []namedField `json:"sector"`
	Themes             []namedField `json:"theme"`
	Abstract           cdataField   `json:"project_abstract"`
}

type namedField struct {
	Name string `json:"Name"`
}

type cdataField struct {
	CData string `json:"cdata"`
}
