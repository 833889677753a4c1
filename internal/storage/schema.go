package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createPagesTable(ctx, db); err != nil {
		return err
	}
	if err := createChunksTable(ctx, db); err != nil {
		return err
	}
	return createChatLogTable(ctx, db)
}

func createPagesTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create pages table: %w", err)
	}
	return nil
}

// createChunksTable stores the ingested chunks so the keyword index can be
// rebuilt without the vector store.
func createChunksTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		title TEXT,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source, position);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	return nil
}

func createChatLogTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS chat_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		session_id TEXT,
		query TEXT NOT NULL,
		label TEXT NOT NULL,
		status TEXT NOT NULL,
		answer TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_log_session ON chat_log(session_id, created_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create chat_log table: %w", err)
	}
	return nil
}
