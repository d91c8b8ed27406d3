package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twistvox/twistvox/internal/store"
	"github.com/twistvox/twistvox/internal/twister"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is the PostgreSQL-backed [store.Store]. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure all required tables exist.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping implements [store.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertPlayer implements [store.Store].
func (s *Store) UpsertPlayer(ctx context.Context, id, username string) (*store.Player, error) {
	const q = `
		INSERT INTO players (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username
		RETURNING user_id, username, total_attempts, successful_attempts,
		          total_score, best_score, best_score_twister_id,
		          fastest_time_ns, created_at, last_played`

	p, err := scanPlayer(s.pool.QueryRow(ctx, q, id, username))
	if err != nil {
		return nil, fmt.Errorf("postgres store: upsert player: %w", err)
	}
	return p, nil
}

// SaveAttempt implements [store.Store]. The attempt row and the player
// aggregate are updated in one transaction so a crash between the two cannot
// skew the stats.
func (s *Store) SaveAttempt(ctx context.Context, a store.Attempt) (string, error) {
	attemptID := uuid.NewString()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("postgres store: save attempt: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO attempts
		    (attempt_id, user_id, twister_id, spoken_text, accuracy,
		     time_taken_ns, score, difficulty, mode, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, insert,
		attemptID,
		a.PlayerID,
		a.TwisterID,
		a.SpokenText,
		a.Accuracy,
		a.TimeTaken.Nanoseconds(),
		a.Score,
		string(a.Difficulty),
		a.Mode,
		a.Success,
	)
	if err != nil {
		return "", fmt.Errorf("postgres store: save attempt: insert: %w", err)
	}

	// All right-hand references to player columns see the pre-update row, so
	// best_score_twister_id compares against the old best.
	const update = `
		UPDATE players
		SET total_attempts        = total_attempts + 1,
		    successful_attempts   = successful_attempts + $2,
		    total_score           = total_score + $3,
		    best_score            = GREATEST(best_score, $3),
		    best_score_twister_id = CASE WHEN $3 > best_score THEN $4 ELSE best_score_twister_id END,
		    fastest_time_ns       = CASE WHEN fastest_time_ns = 0 OR $5 < fastest_time_ns THEN $5 ELSE fastest_time_ns END,
		    last_played           = now()
		WHERE user_id = $1`

	successInc := 0
	if a.Success {
		successInc = 1
	}
	tag, err := tx.Exec(ctx, update,
		a.PlayerID,
		successInc,
		a.Score,
		a.TwisterID,
		a.TimeTaken.Nanoseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("postgres store: save attempt: update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("postgres store: save attempt: %w", store.ErrPlayerNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("postgres store: save attempt: commit: %w", err)
	}
	return attemptID, nil
}

// PlayerStats implements [store.Store].
func (s *Store) PlayerStats(ctx context.Context, playerID string) (*store.PlayerStats, error) {
	const playerQ = `
		SELECT user_id, username, total_attempts, successful_attempts,
		       total_score, best_score, best_score_twister_id,
		       fastest_time_ns, created_at, last_played
		FROM   players
		WHERE  user_id = $1`

	p, err := scanPlayer(s.pool.QueryRow(ctx, playerQ, playerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres store: player stats: %w", store.ErrPlayerNotFound)
		}
		return nil, fmt.Errorf("postgres store: player stats: %w", err)
	}

	const breakdownQ = `
		SELECT difficulty,
		       COUNT(*),
		       COALESCE(AVG(accuracy), 0),
		       COALESCE(MAX(score), 0)
		FROM   attempts
		WHERE  user_id = $1
		GROUP  BY difficulty`

	rows, err := s.pool.Query(ctx, breakdownQ, playerID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: player stats: breakdown: %w", err)
	}
	defer rows.Close()

	stats := &store.PlayerStats{
		Player:       *p,
		ByDifficulty: make(map[twister.Difficulty]store.DifficultyStats),
	}
	for rows.Next() {
		var (
			diff string
			ds   store.DifficultyStats
		)
		if err := rows.Scan(&diff, &ds.Attempts, &ds.AvgAccuracy, &ds.BestScore); err != nil {
			return nil, fmt.Errorf("postgres store: player stats: scan: %w", err)
		}
		stats.ByDifficulty[twister.Difficulty(diff)] = ds
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: player stats: rows: %w", err)
	}
	return stats, nil
}

// Leaderboard implements [store.Store]. Ranks are assigned in result order.
func (s *Store) Leaderboard(ctx context.Context, opts store.LeaderboardOpts) ([]store.LeaderboardEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 15
	}

	var (
		rows pgx.Rows
		err  error
	)
	if opts.Difficulty != "" {
		const q = `
			SELECT p.user_id, p.username,
			       SUM(a.score),
			       COUNT(*),
			       MAX(a.score),
			       AVG(CASE WHEN a.success THEN 100.0 ELSE 0.0 END)
			FROM   players p
			JOIN   attempts a ON a.user_id = p.user_id
			WHERE  a.difficulty = $1
			GROUP  BY p.user_id, p.username
			ORDER  BY SUM(a.score) DESC
			LIMIT  $2`
		rows, err = s.pool.Query(ctx, q, string(opts.Difficulty), limit)
	} else {
		const q = `
			SELECT user_id, username, total_score, total_attempts, best_score,
			       successful_attempts::float8 / total_attempts * 100
			FROM   players
			WHERE  total_attempts > 0
			ORDER  BY total_score DESC
			LIMIT  $1`
		rows, err = s.pool.Query(ctx, q, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []store.LeaderboardEntry
	for rows.Next() {
		var e store.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.TotalScore, &e.Attempts, &e.BestScore, &e.SuccessRate); err != nil {
			return nil, fmt.Errorf("postgres store: leaderboard: scan: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: leaderboard: rows: %w", err)
	}
	return entries, nil
}

// PlayerRank implements [store.Store].
func (s *Store) PlayerRank(ctx context.Context, playerID string) (int, error) {
	const q = `
		SELECT rank FROM (
		    SELECT user_id, RANK() OVER (ORDER BY total_score DESC) AS rank
		    FROM   players
		    WHERE  total_attempts > 0
		) ranked
		WHERE user_id = $1`

	var rank int
	err := s.pool.QueryRow(ctx, q, playerID).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("postgres store: player rank: %w", store.ErrPlayerNotFound)
		}
		return 0, fmt.Errorf("postgres store: player rank: %w", err)
	}
	return rank, nil
}

// CreateSession implements [store.Store].
func (s *Store) CreateSession(ctx context.Context, rec store.SessionRecord) error {
	const q = `
		INSERT INTO sessions (session_id, user_id, guild_id, channel_id, mode, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	startedAt := rec.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, q, rec.ID, rec.PlayerID, rec.GuildID, rec.ChannelID, rec.Mode, startedAt)
	if err != nil {
		return fmt.Errorf("postgres store: create session: %w", err)
	}
	return nil
}

// EndSession implements [store.Store].
func (s *Store) EndSession(ctx context.Context, sessionID string, totalAttempts, totalScore int) error {
	const q = `
		UPDATE sessions
		SET ended_at = now(), total_attempts = $2, total_score = $3
		WHERE session_id = $1`

	_, err := s.pool.Exec(ctx, q, sessionID, totalAttempts, totalScore)
	if err != nil {
		return fmt.Errorf("postgres store: end session: %w", err)
	}
	return nil
}

// DailyTwister implements [store.Store]. The insert races benignly: on
// conflict the loser re-reads the winner's row.
func (s *Store) DailyTwister(ctx context.Context, day time.Time, pick func() int) (int, error) {
	date := day.UTC().Truncate(24 * time.Hour)

	const selectQ = `SELECT twister_id FROM daily_challenges WHERE challenge_date = $1`

	var id int
	err := s.pool.QueryRow(ctx, selectQ, date).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("postgres store: daily twister: %w", err)
	}

	const insertQ = `
		INSERT INTO daily_challenges (challenge_date, twister_id)
		VALUES ($1, $2)
		ON CONFLICT (challenge_date) DO NOTHING`

	if _, err := s.pool.Exec(ctx, insertQ, date, pick()); err != nil {
		return 0, fmt.Errorf("postgres store: daily twister: create: %w", err)
	}

	if err := s.pool.QueryRow(ctx, selectQ, date).Scan(&id); err != nil {
		return 0, fmt.Errorf("postgres store: daily twister: reread: %w", err)
	}
	return id, nil
}

// SaveDailyAttempt implements [store.Store].
func (s *Store) SaveDailyAttempt(ctx context.Context, day time.Time, a store.Attempt) error {
	const q = `
		INSERT INTO daily_challenge_attempts
		    (attempt_id, challenge_date, user_id, score, accuracy, time_taken_ns)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, q,
		uuid.NewString(),
		day.UTC().Truncate(24*time.Hour),
		a.PlayerID,
		a.Score,
		a.Accuracy,
		a.TimeTaken.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("postgres store: save daily attempt: %w", err)
	}
	return nil
}

// DailyStandings implements [store.Store]. Each player counts once with
// their best attempt of the day; ties break on the faster time.
func (s *Store) DailyStandings(ctx context.Context, day time.Time, limit int) ([]store.DailyStanding, error) {
	if limit <= 0 {
		limit = 15
	}

	const q = `
		SELECT user_id, username, score, accuracy, time_taken_ns FROM (
		    SELECT DISTINCT ON (d.user_id)
		           d.user_id, p.username, d.score, d.accuracy, d.time_taken_ns
		    FROM   daily_challenge_attempts d
		    JOIN   players p ON p.user_id = d.user_id
		    WHERE  d.challenge_date = $1
		    ORDER  BY d.user_id, d.score DESC, d.time_taken_ns ASC
		) best
		ORDER BY score DESC, time_taken_ns ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, day.UTC().Truncate(24*time.Hour), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: daily standings: %w", err)
	}
	defer rows.Close()

	var standings []store.DailyStanding
	for rows.Next() {
		var (
			st     store.DailyStanding
			timeNS int64
		)
		if err := rows.Scan(&st.PlayerID, &st.Username, &st.Score, &st.Accuracy, &timeNS); err != nil {
			return nil, fmt.Errorf("postgres store: daily standings: scan: %w", err)
		}
		st.TimeTaken = time.Duration(timeNS)
		st.Rank = len(standings) + 1
		standings = append(standings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: daily standings: rows: %w", err)
	}
	return standings, nil
}

// AddCustomTwister implements [store.Store].
func (s *Store) AddCustomTwister(ctx context.Context, t twister.TongueTwister, createdBy string) (twister.TongueTwister, error) {
	const q = `
		INSERT INTO custom_twisters (text, difficulty, word_count, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING twister_id`

	err := s.pool.QueryRow(ctx, q, t.Text, string(t.Difficulty), t.WordCount, createdBy).Scan(&t.ID)
	if err != nil {
		return twister.TongueTwister{}, fmt.Errorf("postgres store: add custom twister: %w", err)
	}
	return t, nil
}

// CustomTwisters implements [store.Store].
func (s *Store) CustomTwisters(ctx context.Context) ([]twister.TongueTwister, error) {
	const q = `
		SELECT twister_id, text, difficulty, word_count
		FROM   custom_twisters
		ORDER  BY twister_id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres store: custom twisters: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (twister.TongueTwister, error) {
		var (
			t    twister.TongueTwister
			diff string
		)
		if err := row.Scan(&t.ID, &t.Text, &diff, &t.WordCount); err != nil {
			return twister.TongueTwister{}, err
		}
		t.Difficulty = twister.Difficulty(diff)
		return t, nil
	})
}

// scanPlayer reads a full player row in the canonical column order.
func scanPlayer(row pgx.Row) (*store.Player, error) {
	var (
		p          store.Player
		fastestNS  int64
		lastPlayed *time.Time
	)
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.TotalAttempts,
		&p.SuccessfulAttempts,
		&p.TotalScore,
		&p.BestScore,
		&p.BestScoreTwisterID,
		&fastestNS,
		&p.CreatedAt,
		&lastPlayed,
	)
	if err != nil {
		return nil, err
	}
	p.FastestTime = time.Duration(fastestNS)
	if lastPlayed != nil {
		p.LastPlayed = *lastPlayed
	}
	return &p, nil
}
