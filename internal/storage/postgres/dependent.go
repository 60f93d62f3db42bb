package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grants_fetcher/internal/domain"
)

// DependentStore writes the sub-records owned by one grant. The 1:N tables
// use replace semantics (delete then insert); details merge in place. All
// methods pick up a transaction from the context when one is bound.
type DependentStore struct {
	db *sqlx.DB
}

func NewDependentStore(db *sqlx.DB) *DependentStore {
	return &DependentStore{db: db}
}

func (s *DependentStore) UpsertDetails(ctx context.Context, grantID int64, d *domain.Details) error {
	if d == nil {
		return nil
	}
	e := GetExecutor(ctx, s.db)
	_, err := e.ExecContext(ctx, `
		INSERT INTO grant_details (grant_id, description, purpose)
		VALUES ($1, $2, $3)
		ON CONFLICT (grant_id) DO UPDATE SET
			description = EXCLUDED.description,
			purpose = EXCLUDED.purpose`,
		grantID, d.Description, d.Purpose,
	)
	if err != nil {
		return fmt.Errorf("upsert details: %w", err)
	}
	return nil
}

func (s *DependentStore) ReplaceCategories(ctx context.Context, grantID int64, categories []domain.Category) error {
	e := GetExecutor(ctx, s.db)
	if err := deleteByGrant(ctx, e, "grant_categories", grantID); err != nil {
		return err
	}
	if len(categories) == 0 {
		return nil
	}

	rows := make([]categoryRow, len(categories))
	for i, c := range categories {
		rows[i] = categoryRow{GrantID: grantID, Kind: c.Kind, Name: c.Name}
	}
	_, err := sqlx.NamedExecContext(ctx, e,
		`INSERT INTO grant_categories (grant_id, kind, name) VALUES (:grant_id, :kind, :name)`,
		rows,
	)
	if err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	return nil
}

func (s *DependentStore) ReplaceKeywords(ctx context.Context, grantID int64, keywords []domain.Keyword) error {
	e := GetExecutor(ctx, s.db)
	if err := deleteByGrant(ctx, e, "grant_keywords", grantID); err != nil {
		return err
	}
	if len(keywords) == 0 {
		return nil
	}
	if len(keywords) > domain.MaxKeywords {
		keywords = keywords[:domain.MaxKeywords]
	}

	rows := make([]keywordRow, len(keywords))
	for i, k := range keywords {
		rows[i] = keywordRow{GrantID: grantID, Keyword: k.Text, Relevance: k.Relevance}
	}
	_, err := sqlx.NamedExecContext(ctx, e,
		`INSERT INTO grant_keywords (grant_id, keyword, relevance) VALUES (:grant_id, :keyword, :relevance)`,
		rows,
	)
	if err != nil {
		return fmt.Errorf("insert keywords: %w", err)
	}
	return nil
}

func (s *DependentStore) ReplaceContacts(ctx context.Context, grantID int64, contacts []domain.Contact) error {
	e := GetExecutor(ctx, s.db)
	if err := deleteByGrant(ctx, e, "grant_contacts", grantID); err != nil {
		return err
	}
	if len(contacts) == 0 {
		return nil
	}

	rows := make([]contactRow, len(contacts))
	for i, c := range contacts {
		rows[i] = contactRow{GrantID: grantID, Name: c.Name, Email: c.Email, Phone: c.Phone, Role: c.Role}
	}
	_, err := sqlx.NamedExecContext(ctx, e,
		`INSERT INTO grant_contacts (grant_id, name, email, phone, role)
		 VALUES (:grant_id, :name, :email, :phone, :role)`,
		rows,
	)
	if err != nil {
		return fmt.Errorf("insert contacts: %w", err)
	}
	return nil
}

func (s *DependentStore) ReplaceEligibility(ctx context.Context, grantID int64, rules []domain.Eligibility) error {
	e := GetExecutor(ctx, s.db)
	if err := deleteByGrant(ctx, e, "grant_eligibility", grantID); err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	rows := make([]eligibilityRow, len(rules))
	for i, r := range rules {
		rows[i] = eligibilityRow{GrantID: grantID, EntityType: r.EntityType, Description: r.Description}
	}
	_, err := sqlx.NamedExecContext(ctx, e,
		`INSERT INTO grant_eligibility (grant_id, entity_type, description)
		 VALUES (:grant_id, :entity_type, :description)`,
		rows,
	)
	if err != nil {
		return fmt.Errorf("insert eligibility: %w", err)
	}
	return nil
}

func (s *DependentStore) ReplaceLocations(ctx context.Context, grantID int64, locations []domain.Location) error {
	e := GetExecutor(ctx, s.db)
	if err := deleteByGrant(ctx, e, "grant_locations", grantID); err != nil {
		return err
	}
	if len(locations) == 0 {
		return nil
	}

	rows := make([]locationRow, len(locations))
	for i, l := range locations {
		rows[i] = locationRow{GrantID: grantID, Country: l.Country, Region: l.Region}
	}
	_, err := sqlx.NamedExecContext(ctx, e,
		`INSERT INTO grant_locations (grant_id, country, region) VALUES (:grant_id, :country, :region)`,
		rows,
	)
	if err != nil {
		return fmt.Errorf("insert locations: %w", err)
	}
	return nil
}

func deleteByGrant(ctx context.Context, e sqlx.ExtContext, table string, grantID int64) error {
	_, err := e.ExecContext(ctx, "DELETE FROM "+table+" WHERE grant_id = $1", grantID)
	if err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

type categoryRow struct {
	GrantID int64  `db:"grant_id"`
	Kind    string `db:"kind"`
	Name    string `db:"name"`
}

type keywordRow struct {
	GrantID   int64   `db:"grant_id"`
	Keyword   string  `db:"keyword"`
	Relevance float64 `db:"relevance"`
}

type contactRow struct {
	GrantID int64   `db:"grant_id"`
	Name    *string `db:"name"`
	Email   *string `db:"email"`
	Phone   *string `db:"phone"`
	Role    *string `db:"role"`
}

type eligibilityRow struct {
	GrantID     int64   `db:"grant_id"`
	EntityType  string  `db:"entity_type"`
	Description *string `db:"description"`
}

type locationRow struct {
	GrantID int64   `db:"grant_id"`
	Country string  `db:"country"`
	Region  *string `db:"region"`
}
