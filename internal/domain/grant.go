package domain

import (
	"encoding/json"
	"time"
)

// GrantStatus is the canonical lifecycle status every provider's
// vocabulary is translated into.
type GrantStatus string

const (
	StatusActive     GrantStatus = "active"
	StatusClosed     GrantStatus = "closed"
	StatusForecasted GrantStatus = "forecasted"
	StatusArchived   GrantStatus = "archived"
)

// MaxKeywords caps keywords per grant; the most relevant survive truncation.
const MaxKeywords = 50

// Grant is the canonical funding-opportunity record. A grant is uniquely
// identified by (SourceID, ExternalID); a second observation of the same
// pair is an update, never a duplicate insert.
type Grant struct {
	ID           int64           `db:"id"`
	SourceID     string          `db:"source_id"`   // provider key, e.g. "grants_gov"
	ExternalID   string          `db:"external_id"` // provider-native identifier
	Title        string          `db:"title"`
	Status       GrantStatus     `db:"status"`
	FunderName   *string         `db:"funder_name"`
	Currency     string          `db:"currency"`
	FundingMin   *float64        `db:"funding_min"`
	FundingMax   *float64        `db:"funding_max"`
	TotalFunding *float64        `db:"total_funding"`
	PostedDate   *time.Time      `db:"posted_date"`
	StartDate    *time.Time      `db:"start_date"`
	EndDate      *time.Time      `db:"end_date"`
	GrantType    *string         `db:"grant_type"`
	RawData      json.RawMessage `db:"raw_data"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// Details is the 1:1 long-form companion of a grant, merged in place on update.
type Details struct {
	GrantID     int64   `db:"grant_id"`
	Description *string `db:"description"`
	Purpose     *string `db:"purpose"`
}

// Category is a typed classification tag (category, theme, sector, sdg).
type Category struct {
	Kind string `db:"kind"`
	Name string `db:"name"`
}

// Keyword is a term extracted from title and description, scored by relevance.
type Keyword struct {
	Text      string  `db:"keyword"`
	Relevance float64 `db:"relevance"`
}

type Contact struct {
	Name  *string `db:"name"`
	Email *string `db:"email"`
	Phone *string `db:"phone"`
	Role  *string `db:"role"`
}

// Eligibility names a kind of entity allowed to apply.
type Eligibility struct {
	EntityType  string  `db:"entity_type"`
	Description *string `db:"description"`
}

type Location struct {
	Country string  `db:"country"`
	Region  *string `db:"region"`
}

// NormalizedGrant bundles a canonical grant with its dependent sub-records,
// as produced by a provider's Transform.
type NormalizedGrant struct {
	Grant       Grant
	Details     *Details
	Categories  []Category
	Keywords    []Keyword
	Contacts    []Contact
	Eligibility []Eligibility
	Locations   []Location
}

// UpsertOutcome reports what the store did with one grant in a batch.
type UpsertOutcome struct {
	GrantID    int64  `db:"id"`
	ExternalID string `db:"external_id"`
	Created    bool   `db:"inserted"`
}
