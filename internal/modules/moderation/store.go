package moderation

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// BanCount is one leaderboard row.
type BanCount struct {
	InstigatorID string
	Count        int
}

// Store is the ban audit log. The cooldown gate derives from the newest
// recorded ban rather than a separate counter, so the two can never drift.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the ban database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bans (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id      TEXT    NOT NULL,
			instigator_id TEXT    NOT NULL,
			banned_at     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_bans_guild ON bans(guild_id);
	`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// RecordBan appends one ban to the audit log.
func (s *Store) RecordBan(guildID, instigatorID string, at time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO bans (guild_id, instigator_id, banned_at) VALUES (?, ?, ?)",
		guildID, instigatorID, at.Unix(),
	)
	return err
}

// LastBan returns when the guild's newest recorded ban happened, or the zero
// time when none is recorded.
func (s *Store) LastBan(guildID string) (time.Time, error) {
	var unix sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(banned_at) FROM bans WHERE guild_id = ?",
		guildID,
	).Scan(&unix)
	if err != nil {
		return time.Time{}, err
	}
	if !unix.Valid {
		return time.Time{}, nil
	}
	return time.Unix(unix.Int64, 0), nil
}

// TopInstigators returns up to limit instigators ordered by ban count.
func (s *Store) TopInstigators(guildID string, limit int) ([]BanCount, error) {
	rows, err := s.db.Query(`
		SELECT instigator_id, COUNT(*) AS n
		FROM bans
		WHERE guild_id = ?
		GROUP BY instigator_id
		ORDER BY n DESC, instigator_id
		LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []BanCount
	for rows.Next() {
		var bc BanCount
		if err := rows.Scan(&bc.InstigatorID, &bc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, bc)
	}
	return counts, rows.Err()
}
