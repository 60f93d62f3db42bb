//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"grants_fetcher/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_grants.up.sql"),
			filepath.Join(migrationsPath, "002_seed_sources.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	// Sub-record tables cascade from grants.
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM grants")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM ingest_state")
	_, _ = s.db.ExecContext(s.ctx, "UPDATE sources SET last_synced_at = NULL, total_fetched = 0, total_loaded = 0")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func ptr[T any](v T) *T { return &v }

func testGrant(externalID, title string) *domain.Grant {
	return &domain.Grant{
		SourceID:     "grants_gov",
		ExternalID:   externalID,
		Title:        title,
		Status:       domain.StatusActive,
		FunderName:   ptr("Test Agency"),
		Currency:     "USD",
		FundingMin:   ptr(10000.0),
		FundingMax:   ptr(500000.0),
		TotalFunding: ptr(2000000.0),
		RawData:      json.RawMessage(`{"id":"` + externalID + `"}`),
	}
}

func (s *PostgresIntegrationSuite) TestGrantStore_UpsertBatch_Insert() {
	store := NewGrantStore(s.db)

	outcomes, err := store.UpsertBatch(s.ctx, []*domain.Grant{
		testGrant("G-1", "First Grant"),
		testGrant("G-2", "Second Grant"),
	})
	s.NoError(err)
	s.Len(outcomes, 2)

	for _, o := range outcomes {
		s.Greater(o.GrantID, int64(0))
		s.True(o.Created, "first observation of %s should classify as created", o.ExternalID)
	}

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grants WHERE source_id = 'grants_gov'"))
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestGrantStore_UpsertBatch_SecondPassUpdates() {
	store := NewGrantStore(s.db)

	first, err := store.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "Original Title")})
	s.NoError(err)
	s.Require().Len(first, 1)
	s.True(first[0].Created)

	updated := testGrant("G-1", "Amended Title")
	updated.Status = domain.StatusClosed
	second, err := store.UpsertBatch(s.ctx, []*domain.Grant{updated})
	s.NoError(err)
	s.Require().Len(second, 1)

	s.False(second[0].Created, "re-observation should classify as updated")
	s.Equal(first[0].GrantID, second[0].GrantID)

	var title, status string
	row := s.db.QueryRowxContext(s.ctx, "SELECT title, status FROM grants WHERE id = $1", first[0].GrantID)
	s.NoError(row.Scan(&title, &status))
	s.Equal("Amended Title", title)
	s.Equal("closed", status)
}

func (s *PostgresIntegrationSuite) TestGrantStore_UpsertBatch_MixedBatch() {
	store := NewGrantStore(s.db)

	_, err := store.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "Existing")})
	s.NoError(err)

	outcomes, err := store.UpsertBatch(s.ctx, []*domain.Grant{
		testGrant("G-1", "Existing, updated"),
		testGrant("G-2", "Brand new"),
	})
	s.NoError(err)
	s.Require().Len(outcomes, 2)

	byExternal := make(map[string]domain.UpsertOutcome, 2)
	for _, o := range outcomes {
		byExternal[o.ExternalID] = o
	}
	s.False(byExternal["G-1"].Created)
	s.True(byExternal["G-2"].Created)
}

func (s *PostgresIntegrationSuite) TestGrantStore_SameExternalIDAcrossSources() {
	store := NewGrantStore(s.db)

	a := testGrant("SHARED-1", "From grants.gov")
	b := testGrant("SHARED-1", "From world bank")
	b.SourceID = "world_bank"

	outcomes, err := store.UpsertBatch(s.ctx, []*domain.Grant{a, b})
	s.NoError(err)
	s.Len(outcomes, 2)
	s.True(outcomes[0].Created)
	s.True(outcomes[1].Created)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grants WHERE external_id = 'SHARED-1'"))
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestDependentStore_ReplaceSemantics() {
	grantStore := NewGrantStore(s.db)
	depStore := NewDependentStore(s.db)

	outcomes, err := grantStore.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "With categories")})
	s.Require().NoError(err)
	grantID := outcomes[0].GrantID

	err = depStore.ReplaceCategories(s.ctx, grantID, []domain.Category{
		{Kind: "category", Name: "Agriculture"},
		{Kind: "theme", Name: "Climate"},
	})
	s.NoError(err)

	// A second pass replaces, never appends.
	err = depStore.ReplaceCategories(s.ctx, grantID, []domain.Category{
		{Kind: "category", Name: "Health"},
	})
	s.NoError(err)

	var names []string
	s.NoError(s.db.SelectContext(s.ctx, &names, "SELECT name FROM grant_categories WHERE grant_id = $1", grantID))
	s.Equal([]string{"Health"}, names)

	// An empty set clears the table for the grant.
	s.NoError(depStore.ReplaceCategories(s.ctx, grantID, nil))

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grant_categories WHERE grant_id = $1", grantID))
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestDependentStore_KeywordsCapped() {
	grantStore := NewGrantStore(s.db)
	depStore := NewDependentStore(s.db)

	outcomes, err := grantStore.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "Keyword heavy")})
	s.Require().NoError(err)
	grantID := outcomes[0].GrantID

	keywords := make([]domain.Keyword, domain.MaxKeywords+10)
	for i := range keywords {
		keywords[i] = domain.Keyword{Text: "kw" + string(rune('a'+i%26)) + string(rune('a'+i/26)), Relevance: float64(i)}
	}

	s.NoError(depStore.ReplaceKeywords(s.ctx, grantID, keywords))

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grant_keywords WHERE grant_id = $1", grantID))
	s.Equal(domain.MaxKeywords, count)
}

func (s *PostgresIntegrationSuite) TestDependentStore_DetailsMerge() {
	grantStore := NewGrantStore(s.db)
	depStore := NewDependentStore(s.db)

	outcomes, err := grantStore.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "With details")})
	s.Require().NoError(err)
	grantID := outcomes[0].GrantID

	s.NoError(depStore.UpsertDetails(s.ctx, grantID, &domain.Details{
		Description: ptr("first description"),
		Purpose:     ptr("first purpose"),
	}))
	s.NoError(depStore.UpsertDetails(s.ctx, grantID, &domain.Details{
		Description: ptr("second description"),
	}))

	var description string
	var purpose *string
	row := s.db.QueryRowxContext(s.ctx, "SELECT description, purpose FROM grant_details WHERE grant_id = $1", grantID)
	s.NoError(row.Scan(&description, &purpose))
	s.Equal("second description", description)
	s.Nil(purpose)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grant_details WHERE grant_id = $1", grantID))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestDependentStore_CascadeDelete() {
	grantStore := NewGrantStore(s.db)
	depStore := NewDependentStore(s.db)

	outcomes, err := grantStore.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "Doomed")})
	s.Require().NoError(err)
	grantID := outcomes[0].GrantID

	s.NoError(depStore.ReplaceLocations(s.ctx, grantID, []domain.Location{{Country: "US"}}))
	s.NoError(depStore.ReplaceEligibility(s.ctx, grantID, []domain.Eligibility{{EntityType: "nonprofit"}}))

	_, err = s.db.ExecContext(s.ctx, "DELETE FROM grants WHERE id = $1", grantID)
	s.NoError(err)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grant_locations WHERE grant_id = $1", grantID))
	s.Equal(0, count)
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grant_eligibility WHERE grant_id = $1", grantID))
	s.Equal(0, count)
}

func (s *PostgresIntegrationSuite) TestCheckpointStore_GetMissingReturnsEmpty() {
	store := NewCheckpointStore(s.db)

	value, err := store.Get(s.ctx, "grants_gov", domain.CheckpointLastOffset)
	s.NoError(err)
	s.Equal("", value)
}

func (s *PostgresIntegrationSuite) TestCheckpointStore_SaveAndGet() {
	store := NewCheckpointStore(s.db)

	s.NoError(store.Save(s.ctx, "grants_gov", domain.CheckpointLastOffset, "500"))
	s.NoError(store.Save(s.ctx, "grants_gov", domain.CheckpointLastOffset, "600"))
	s.NoError(store.Save(s.ctx, "world_bank", domain.CheckpointLastOffset, "100"))

	value, err := store.Get(s.ctx, "grants_gov", domain.CheckpointLastOffset)
	s.NoError(err)
	s.Equal("600", value)

	value, err = store.Get(s.ctx, "world_bank", domain.CheckpointLastOffset)
	s.NoError(err)
	s.Equal("100", value)
}

func (s *PostgresIntegrationSuite) TestSourceStore_ListActive() {
	store := NewSourceStore(s.db)

	_, err := s.db.ExecContext(s.ctx, "UPDATE sources SET active = FALSE WHERE name = 'eu_portal'")
	s.NoError(err)
	defer s.db.ExecContext(s.ctx, "UPDATE sources SET active = TRUE WHERE name = 'eu_portal'")

	sources, err := store.ListActive(s.ctx)
	s.NoError(err)
	s.Len(sources, 2)
	for _, src := range sources {
		s.NotEqual("eu_portal", src.Name)
		s.True(src.Active)
	}
}

func (s *PostgresIntegrationSuite) TestSourceStore_FinishRunAccumulates() {
	store := NewSourceStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	s.NoError(store.FinishRun(s.ctx, "grants_gov", 100, 80, now))
	s.NoError(store.FinishRun(s.ctx, "grants_gov", 50, 50, now.Add(time.Hour)))

	var src domain.Source
	s.NoError(s.db.GetContext(s.ctx, &src,
		"SELECT id, name, display_name, active, last_synced_at, total_fetched, total_loaded FROM sources WHERE name = 'grants_gov'"))

	s.Equal(int64(150), src.TotalFetched)
	s.Equal(int64(130), src.TotalLoaded)
	s.Require().NotNil(src.LastSyncedAt)
	s.WithinDuration(now.Add(time.Hour), *src.LastSyncedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	grantStore := NewGrantStore(s.db)
	depStore := NewDependentStore(s.db)

	outcomes, err := grantStore.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "Committed")})
	s.Require().NoError(err)
	grantID := outcomes[0].GrantID

	err = tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := depStore.ReplaceContacts(ctx, grantID, []domain.Contact{{Name: ptr("Desk")}}); err != nil {
			return err
		}
		return depStore.ReplaceLocations(ctx, grantID, []domain.Location{{Country: "US"}})
	})
	s.NoError(err)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grant_contacts WHERE grant_id = $1", grantID))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_RollbackLeavesNoPartialWrites() {
	tm := NewTransactionManager(s.db)
	grantStore := NewGrantStore(s.db)
	depStore := NewDependentStore(s.db)

	outcomes, err := grantStore.UpsertBatch(s.ctx, []*domain.Grant{testGrant("G-1", "Rolled back")})
	s.Require().NoError(err)
	grantID := outcomes[0].GrantID

	err = tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := depStore.ReplaceContacts(ctx, grantID, []domain.Contact{{Name: ptr("Ghost")}}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM grant_contacts WHERE grant_id = $1", grantID))
	s.Equal(0, count)
}
