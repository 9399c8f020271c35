package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations ensures required tables exist. This keeps the service
// self-contained without an external migration step.
//
// Deleting a run cascades through its campaign data, issue groups and
// occurrences. The unique keys on issue_groups and issue_occurrences are
// what makes the diagnostics pass duplicate-skipping and safe to retry.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS analytics_runs
(
	id                  UUID PRIMARY KEY,
	name                TEXT NOT NULL,
	source              TEXT NOT NULL,
	platform            TEXT NOT NULL,
	warnings            JSONB NOT NULL DEFAULT '[]',
	raw_payload         JSONB NOT NULL DEFAULT '{}',
	diagnostics_state   TEXT NOT NULL DEFAULT 'pending',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS campaign_data
(
	id              BIGSERIAL PRIMARY KEY,
	run_id          UUID NOT NULL REFERENCES analytics_runs(id) ON DELETE CASCADE,
	campaign        TEXT NOT NULL,
	date            DATE NOT NULL,
	impressions     BIGINT NOT NULL DEFAULT 0,
	clicks          BIGINT NOT NULL DEFAULT 0,
	spend           NUMERIC(18, 4) NOT NULL DEFAULT 0,
	conversions     BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_campaign_data_run
	ON campaign_data (run_id, campaign, date);

CREATE TABLE IF NOT EXISTS issue_groups
(
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL REFERENCES analytics_runs(id) ON DELETE CASCADE,
	campaign    TEXT NOT NULL,
	type        TEXT NOT NULL,
	severity    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, campaign, type)
);

CREATE TABLE IF NOT EXISTS issue_occurrences
(
	id                  BIGSERIAL PRIMARY KEY,
	issue_group_id      BIGINT NOT NULL REFERENCES issue_groups(id) ON DELETE CASCADE,
	campaign_data_id    BIGINT NOT NULL REFERENCES campaign_data(id) ON DELETE CASCADE,
	date                DATE NOT NULL,
	notes               TEXT NOT NULL DEFAULT '',
	UNIQUE (issue_group_id, campaign_data_id)
);
`)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
