package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
	"github.com/vctt94/blackjacksrv/pkg/server/internal/db"
)

// Database is the round ledger. The server only appends to it, off the event
// loop; a nil Database disables recording entirely.
type Database interface {
	// RecordRound persists the settled results of one finished round.
	RecordRound(roomID int, results []blackjack.RoundResult) error
	// Close closes the database connection
	Close() error
}

// NewDatabase opens the SQLite ledger at dbPath, creating the directory if
// needed.
func NewDatabase(dbPath string) (Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	return db.NewDB(dbPath)
}

// Round is one persisted seat outcome, as read back from the ledger.
type Round = db.Round

// Ledger is read access to a round ledger. The running server never reads
// its own ledger; this is for operator tooling and tests.
type Ledger interface {
	// PlayerRounds returns recorded outcomes for a nickname, newest
	// first. A limit of 0 returns everything.
	PlayerRounds(nickname string, limit int) ([]Round, error)
	// Close closes the database connection
	Close() error
}

// OpenLedger opens an existing ledger for reading. Unlike NewDatabase it
// refuses to create one, so a mistyped path fails instead of leaving an
// empty file behind.
func OpenLedger(dbPath string) (Ledger, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("cannot open ledger: %v", err)
	}
	return db.NewDB(dbPath)
}
