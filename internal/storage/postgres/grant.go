package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"grants_fetcher/internal/domain"
)

// GrantStore writes canonical grant records.
type GrantStore struct {
	db *sqlx.DB
}

func NewGrantStore(db *sqlx.DB) *GrantStore {
	return &GrantStore{db: db}
}

const grantColumns = 14

// UpsertBatch bulk-writes one provider's grants keyed on
// (source_id, external_id), overwriting all mapped fields on conflict. The
// returned outcomes carry Postgres's own conflict indicator (xmax = 0 on a
// fresh row), so created-vs-updated never depends on timestamp comparison.
// A failure here fails the whole batch.
func (s *GrantStore) UpsertBatch(ctx context.Context, grants []*domain.Grant) ([]domain.UpsertOutcome, error) {
	if len(grants) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO grants (
			source_id, external_id, title, status, funder_name, currency,
			funding_min, funding_max, total_funding,
			posted_date, start_date, end_date, grant_type, raw_data
		) VALUES `)

	args := make([]interface{}, 0, len(grants)*grantColumns)
	for i, g := range grants {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < grantColumns; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*grantColumns + j + 1))
		}
		sb.WriteString(")")
		args = append(args,
			g.SourceID, g.ExternalID, g.Title, g.Status, g.FunderName, g.Currency,
			g.FundingMin, g.FundingMax, g.TotalFunding,
			g.PostedDate, g.StartDate, g.EndDate, g.GrantType, []byte(g.RawData),
		)
	}

	sb.WriteString(`
		ON CONFLICT (source_id, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			funder_name = EXCLUDED.funder_name,
			currency = EXCLUDED.currency,
			funding_min = EXCLUDED.funding_min,
			funding_max = EXCLUDED.funding_max,
			total_funding = EXCLUDED.total_funding,
			posted_date = EXCLUDED.posted_date,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			grant_type = EXCLUDED.grant_type,
			raw_data = EXCLUDED.raw_data,
			updated_at = now()
		RETURNING id, external_id, (xmax = 0) AS inserted`)

	rows, err := s.db.QueryxContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("bulk upsert grants: %w", err)
	}
	defer rows.Close()

	outcomes := make([]domain.UpsertOutcome, 0, len(grants))
	for rows.Next() {
		var o domain.UpsertOutcome
		if err := rows.StructScan(&o); err != nil {
			return nil, fmt.Errorf("scan upsert outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read upsert outcomes: %w", err)
	}

	return outcomes, nil
}
