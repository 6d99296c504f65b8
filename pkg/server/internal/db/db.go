package db

import (
	"database/sql"
	"fmt"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
)

// DB is the SQLite-backed round ledger. The server only ever appends; rows
// are never read back at runtime, so restarts still start everyone fresh.
type DB struct {
	*sql.DB
}

// Round is one persisted seat outcome of a settled round.
type Round struct {
	ID           int64
	RoomID       int
	Nickname     string
	Bet          int
	Delta        int
	CreditsAfter int
	CreatedAt    string
}

// NewDB opens the ledger at dbPath and creates the schema when missing.
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			nickname TEXT NOT NULL,
			bet INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			credits_after INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// RecordRound appends one row per settled seat, all in a single transaction.
func (db *DB) RecordRound(roomID int, results []blackjack.RoundResult) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO rounds (room_id, nickname, bet, delta, credits_after)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.Exec(roomID, res.Nickname, res.Bet, res.Delta, res.Credits); err != nil {
			return fmt.Errorf("failed to record round for %s: %v", res.Nickname, err)
		}
	}

	return tx.Commit()
}

// PlayerRounds returns recorded outcomes for a nickname, newest first. A
// limit of 0 returns everything.
func (db *DB) PlayerRounds(nickname string, limit int) ([]Round, error) {
	query := `
		SELECT id, room_id, nickname, bet, delta, credits_after, created_at
		FROM rounds
		WHERE nickname = ?
		ORDER BY id DESC
	`
	args := []interface{}{nickname}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %v", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		var r Round
		if err := rows.Scan(&r.ID, &r.RoomID, &r.Nickname, &r.Bet, &r.Delta, &r.CreditsAfter, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %v", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
