// Package postgres provides the PostgreSQL-backed implementation of
// [store.Store].
//
// All operations share a single [pgxpool.Pool]. [Migrate] creates the
// required tables idempotently, so a fresh database only needs the DSN.
//
// Usage:
//
//	st, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlPlayers = `
CREATE TABLE IF NOT EXISTS players (
    user_id               TEXT         PRIMARY KEY,
    username              TEXT         NOT NULL,
    total_attempts        INTEGER      NOT NULL DEFAULT 0,
    successful_attempts   INTEGER      NOT NULL DEFAULT 0,
    total_score           INTEGER      NOT NULL DEFAULT 0,
    best_score            INTEGER      NOT NULL DEFAULT 0,
    best_score_twister_id INTEGER      NOT NULL DEFAULT 0,
    fastest_time_ns       BIGINT       NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ  NOT NULL DEFAULT now(),
    last_played           TIMESTAMPTZ
);
`

const ddlAttempts = `
CREATE TABLE IF NOT EXISTS attempts (
    attempt_id    TEXT         PRIMARY KEY,
    user_id       TEXT         NOT NULL REFERENCES players(user_id),
    twister_id    INTEGER      NOT NULL,
    spoken_text   TEXT         NOT NULL DEFAULT '',
    accuracy      REAL         NOT NULL,
    time_taken_ns BIGINT       NOT NULL,
    score         INTEGER      NOT NULL,
    difficulty    TEXT         NOT NULL,
    mode          TEXT         NOT NULL,
    success       BOOLEAN      NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts (user_id);
CREATE INDEX IF NOT EXISTS idx_attempts_twister ON attempts (twister_id);
CREATE INDEX IF NOT EXISTS idx_attempts_score ON attempts (score DESC);
CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts (created_at DESC);
`

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id     TEXT         PRIMARY KEY,
    user_id        TEXT         NOT NULL REFERENCES players(user_id),
    guild_id       TEXT         NOT NULL DEFAULT '',
    channel_id     TEXT         NOT NULL DEFAULT '',
    mode           TEXT         NOT NULL,
    started_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    ended_at       TIMESTAMPTZ,
    total_attempts INTEGER      NOT NULL DEFAULT 0,
    total_score    INTEGER      NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id);
`

const ddlDaily = `
CREATE TABLE IF NOT EXISTS daily_challenges (
    challenge_date DATE         PRIMARY KEY,
    twister_id     INTEGER      NOT NULL,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_challenge_attempts (
    attempt_id     TEXT         PRIMARY KEY,
    challenge_date DATE         NOT NULL REFERENCES daily_challenges(challenge_date),
    user_id        TEXT         NOT NULL REFERENCES players(user_id),
    score          INTEGER      NOT NULL,
    accuracy       REAL         NOT NULL,
    time_taken_ns  BIGINT       NOT NULL,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_daily_attempts_date ON daily_challenge_attempts (challenge_date);
CREATE INDEX IF NOT EXISTS idx_daily_attempts_user ON daily_challenge_attempts (user_id);
`

// Custom twister IDs start above the built-in corpus range so the two never
// collide.
const ddlCustomTwisters = `
CREATE TABLE IF NOT EXISTS custom_twisters (
    twister_id  INTEGER      PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY (START WITH 1000),
    text        TEXT         NOT NULL,
    difficulty  TEXT         NOT NULL,
    word_count  INTEGER      NOT NULL,
    created_by  TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate creates all Twistvox tables if they do not exist. It is safe to
// run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{
		ddlPlayers,
		ddlAttempts,
		ddlSessions,
		ddlDaily,
		ddlCustomTwisters,
	} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
