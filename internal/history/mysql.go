package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	xerrors "CarMania-Agent/internal/errors"
)

// MySQLConfig describes the interaction-history database connection.
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MySQLStore persists interaction records in MySQL.
type MySQLStore struct {
	db *sql.DB
}

const createInteractionsTable = `
CREATE TABLE IF NOT EXISTS agent_interactions (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    message_id VARCHAR(128) NOT NULL,
    sender_address VARCHAR(64) NOT NULL,
    intent_type VARCHAR(32) NOT NULL,
    confidence DOUBLE NOT NULL DEFAULT 0,
    access_tier VARCHAR(16) NOT NULL,
    nft_verified TINYINT(1) NOT NULL DEFAULT 0,
    response_chars INT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    KEY idx_sender (sender_address),
    KEY idx_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// NewMySQLStore opens the connection pool and ensures the table exists.
func NewMySQLStore(ctx context.Context, cfg MySQLConfig) (*MySQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "mysql dsn is required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, createInteractionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure interactions table: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// Save implements Store.
func (s *MySQLStore) Save(ctx context.Context, record Record) error {
	if record.MessageID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "message id is required")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	const stmt = `INSERT INTO agent_interactions
        (message_id, sender_address, intent_type, confidence, access_tier, nft_verified, response_chars, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		record.MessageID, record.SenderAddress, record.IntentType, record.Confidence,
		record.AccessTier, record.NFTVerified, record.ResponseChars, record.CreatedAt)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "insert interaction")
	}
	return nil
}

// ListRecent implements Store, newest first.
func (s *MySQLStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const stmt = `SELECT message_id, sender_address, intent_type, confidence, access_tier, nft_verified, response_chars, created_at
        FROM agent_interactions ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "query interactions")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.MessageID, &r.SenderAddress, &r.IntentType, &r.Confidence,
			&r.AccessTier, &r.NFTVerified, &r.ResponseChars, &r.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan interaction")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate interactions")
	}
	return records, nil
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
