package matchmaker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

type pgRepo struct {
	db  *sql.DB
	now func() time.Time
}

const createMatchTable = `
CREATE TABLE IF NOT EXISTS party_matches (
	session_id   TEXT PRIMARY KEY,
	password     TEXT NOT NULL,
	platform     TEXT NOT NULL,
	boss         TEXT NOT NULL,
	participants TEXT[] NOT NULL,
	roles        JSONB NOT NULL,
	formed_at    TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS party_matches_password_idx ON party_matches (password, expires_at);
`

// NewPostgresRepo 成队历史写入 postgres；过期行保留作为历史，只是不再按口令命中
func NewPostgresRepo(ctx context.Context, db *sql.DB) (Repo, error) {
	if _, err := db.ExecContext(ctx, createMatchTable); err != nil {
		return nil, err
	}
	return &pgRepo{db: db, now: time.Now}, nil
}

func (r *pgRepo) SaveMatch(ctx context.Context, m *MatchResult, ttl time.Duration) error {
	roles, err := json.Marshal(m.Roles())
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO party_matches (session_id, password, platform, boss, participants, roles, formed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING`,
		m.SessionID(), m.Password(), string(m.Platform()), m.Boss(),
		pq.Array(m.Participants()), roles, m.FormedAt(), r.now().Add(ttl),
	)
	return err
}

const selectMatch = `
	SELECT session_id, password, platform, boss, participants, roles, formed_at
	FROM party_matches`

func (r *pgRepo) MatchByPassword(ctx context.Context, password string) (*ArchivedMatch, error) {
	return scanMatch(r.db.QueryRowContext(ctx, selectMatch+`
		WHERE password = $1 AND expires_at > $2
		ORDER BY formed_at DESC
		LIMIT 1`, password, r.now()))
}

func (r *pgRepo) MatchOfPlayer(ctx context.Context, identity string) (*ArchivedMatch, error) {
	return scanMatch(r.db.QueryRowContext(ctx, selectMatch+`
		WHERE $1 = ANY(participants) AND expires_at > $2
		ORDER BY formed_at DESC
		LIMIT 1`, identity, r.now()))
}

func scanMatch(row *sql.Row) (*ArchivedMatch, error) {
	var (
		am       ArchivedMatch
		platform string
		roles    []byte
	)
	err := row.Scan(&am.SessionID, &am.Password, &platform, &am.Boss, pq.Array(&am.Participants), &roles, &am.FormedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	am.Platform = Platform(platform)
	if err := json.Unmarshal(roles, &am.Roles); err != nil {
		return nil, err
	}
	return &am, nil
}
