package grantsgov

import "encoding/json"

type searchRequest struct {
	Rows           int    `json:"rows"`
	StartRecordNum int    `json:"startRecordNum"`
	OppStatuses    string `json:"oppStatuses,omitempty"`
	PostedFrom     string `json:"postedFrom,omitempty"`
}

type searchResponse struct {
	ErrorCode int        `json:"errorcode"`
	Msg       string     `json:"msg"`
	Data      searchData `json:"data"`
}

type searchData struct {
	HitCount int               `json:"hitCount"`
	OppHits  []json.RawMessage `json:"oppHits"`
}

// Opportunity is one Grants.gov search hit. Amount fields arrive as strings,
// sometimes empty; dates are MM/DD/YYYY.
type Opportunity struct {
	ID                json.Number   `json:"id"`
	Number            string        `json:"number"`
	Title             string        `json:"title"`
	AgencyName        string        `json:"agencyName"`
	OppStatus         string        `json:"oppStatus"`
	OpenDate          string        `json:"openDate"`
	CloseDate         string        `json:"closeDate"`
	PostedDate        string        `json:"postedDate"`
	Synopsis          string        `json:"synopsis"`
	Purpose           string        `json:"purpose"`
	DocType           string        `json:"docType"`
	AwardFloor        string        `json:"awardFloor"`
	AwardCeiling      string        `json:"awardCeiling"`
	EstimatedFunding  string        `json:"estimatedFunding"`
	FundingCategories []string      `json:"fundingCategories"`
	ApplicantTypes    []string      `json:"applicantTypes"`
	AgencyContact     agencyContact `json:"agencyContact"`
}

type agencyContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
