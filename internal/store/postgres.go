// internal/store/postgres.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"calorie-bot/internal/models"
	"calorie-bot/pkg/logger"
)

// PostgresStore satisfies the same contract as FileStore on top of a pgx
// pool. Selected when a DSN is configured.
type PostgresStore struct {
	pool  *pgxpool.Pool
	trial time.Duration
	log   *logger.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    user_id       BIGINT PRIMARY KEY,
    joined_at     BIGINT NOT NULL,
    premium       BOOLEAN NOT NULL DEFAULT FALSE,
    premium_until BIGINT NOT NULL DEFAULT 0,
    trial_started BIGINT NOT NULL DEFAULT 0,
    trial_until   BIGINT NOT NULL DEFAULT 0,
    profile       JSONB
);
CREATE TABLE IF NOT EXISTS payments (
    id      BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    amount  INT NOT NULL,
    ts      BIGINT NOT NULL,
    payload TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

func NewPostgresStore(dsn string, trial time.Duration, log *logger.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool, trial: trial, log: log}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) scanAccount(row pgx.Row) (models.UserAccount, error) {
	var account models.UserAccount
	var profile []byte
	err := row.Scan(&account.JoinedAt, &account.Premium, &account.PremiumUntil,
		&account.TrialStarted, &account.TrialUntil, &profile)
	if err != nil {
		return account, err
	}
	if len(profile) > 0 {
		var p models.Profile
		if err := json.Unmarshal(profile, &p); err == nil {
			account.Profile = &p
		}
	}
	return account, nil
}

func (s *PostgresStore) GetOrCreateAccount(ctx context.Context, userID int64) (models.UserAccount, error) {
	query := `
        INSERT INTO accounts (user_id, joined_at)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET user_id = accounts.user_id
        RETURNING joined_at, premium, premium_until, trial_started, trial_until, profile
    `
	account, err := s.scanAccount(s.pool.QueryRow(ctx, query, userID, time.Now().Unix()))
	if err != nil {
		return models.UserAccount{JoinedAt: time.Now().Unix()}, fmt.Errorf("failed to get or create account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) Account(ctx context.Context, userID int64) (models.UserAccount, bool, error) {
	query := `
        SELECT joined_at, premium, premium_until, trial_started, trial_until, profile
        FROM accounts
        WHERE user_id = $1
    `
	account, err := s.scanAccount(s.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.UserAccount{}, false, nil
	}
	if err != nil {
		// Read failures degrade to "no data".
		s.log.Warnw("Failed to read account, treating as absent", "user_id", userID, "error", err)
		return models.UserAccount{}, false, nil
	}
	return account, true, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, userID int64, profile models.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	query := `
        INSERT INTO accounts (user_id, joined_at, profile)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET profile = EXCLUDED.profile
    `
	if _, err := s.pool.Exec(ctx, query, userID, time.Now().Unix(), raw); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GrantPremium(ctx context.Context, userID int64, days int) (models.UserAccount, error) {
	now := time.Now().Unix()
	// Stacking: extend from max(now, current expiry) in a single statement.
	query := `
        INSERT INTO accounts (user_id, joined_at, premium, premium_until)
        VALUES ($1, $2, TRUE, $2 + $3)
        ON CONFLICT (user_id) DO UPDATE SET
            premium = TRUE,
            premium_until = GREATEST(accounts.premium_until, $2::bigint) + $3
        RETURNING joined_at, premium, premium_until, trial_started, trial_until, profile
    `
	account, err := s.scanAccount(s.pool.QueryRow(ctx, query, userID, now, int64(days)*86400))
	if err != nil {
		return models.UserAccount{}, fmt.Errorf("failed to grant premium: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) RevokePremium(ctx context.Context, userID int64) error {
	query := `
        INSERT INTO accounts (user_id, joined_at, premium, premium_until)
        VALUES ($1, $2, FALSE, 0)
        ON CONFLICT (user_id) DO UPDATE SET premium = FALSE, premium_until = 0
    `
	if _, err := s.pool.Exec(ctx, query, userID, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to revoke premium: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasPremium(ctx context.Context, userID int64) (bool, error) {
	var premium bool
	var until int64
	query := `SELECT premium, premium_until FROM accounts WHERE user_id = $1`
	err := s.pool.QueryRow(ctx, query, userID).Scan(&premium, &until)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		s.log.Warnw("Failed to read premium state, treating as absent", "user_id", userID, "error", err)
		return false, nil
	}

	now := time.Now().Unix()
	if premium && until > now {
		return true, nil
	}
	if premium {
		// Lazy expiry of the stale flag.
		if _, err := s.pool.Exec(ctx, `UPDATE accounts SET premium = FALSE WHERE user_id = $1`, userID); err != nil {
			s.log.Warnw("Failed to persist lazy premium expiry", "user_id", userID, "error", err)
		}
	}
	return false, nil
}

func (s *PostgresStore) StartTrialIfNeeded(ctx context.Context, userID int64) error {
	now := time.Now()
	query := `
        INSERT INTO accounts (user_id, joined_at, trial_started, trial_until)
        VALUES ($1, $2, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET
            trial_started = $2,
            trial_until   = $3
        WHERE accounts.trial_started = 0
    `
	if _, err := s.pool.Exec(ctx, query, userID, now.Unix(), now.Add(s.trial).Unix()); err != nil {
		return fmt.Errorf("failed to start trial: %w", err)
	}
	return nil
}

func (s *PostgresStore) TrialActive(ctx context.Context, userID int64) (bool, error) {
	var started, until int64
	query := `SELECT trial_started, trial_until FROM accounts WHERE user_id = $1`
	err := s.pool.QueryRow(ctx, query, userID).Scan(&started, &until)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		s.log.Warnw("Failed to read trial state, treating as absent", "user_id", userID, "error", err)
		return false, nil
	}
	return started != 0 && time.Now().Unix() <= until, nil
}

func (s *PostgresStore) RecordPayment(ctx context.Context, userID int64, amount int, payload string) error {
	query := `INSERT INTO payments (user_id, amount, ts, payload) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, userID, amount, time.Now().Unix(), payload); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountAccounts(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountActivePremium(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM accounts WHERE premium AND premium_until > $1`
	if err := s.pool.QueryRow(ctx, query, time.Now().Unix()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active premiums: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) PaymentStats(ctx context.Context) (int, int, error) {
	var total, count int
	query := `SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM payments`
	if err := s.pool.QueryRow(ctx, query).Scan(&total, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to read payment stats: %w", err)
	}
	return total, count, nil
}

func (s *PostgresStore) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Greeting(ctx context.Context) (string, error) {
	var text string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = 'greeting'`).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		s.log.Warnw("Failed to read greeting, using default", "error", err)
		return "", nil
	}
	return text, nil
}

func (s *PostgresStore) SetGreeting(ctx context.Context, text string) error {
	query := `
        INSERT INTO settings (key, value) VALUES ('greeting', $1)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
    `
	if _, err := s.pool.Exec(ctx, query, text); err != nil {
		return fmt.Errorf("failed to save greeting: %w", err)
	}
	return nil
}
