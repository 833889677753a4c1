package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
)

// SavePage inserts or replaces a crawled page.
func (db *DB) SavePage(ctx context.Context, p *Page) error {
	if p == nil || p.URL == "" {
		return fmt.Errorf("save page: %w", apperrors.ErrInvalidInput)
	}
	fetched := p.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}

	query := `INSERT INTO pages (url, title, content, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET title = excluded.title, content = excluded.content, fetched_at = excluded.fetched_at`
	if _, err := db.Conn().ExecContext(ctx, query, p.URL, p.Title, p.Content, fetched.Unix()); err != nil {
		return fmt.Errorf("failed to save page %s: %w", p.URL, err)
	}
	return nil
}

// GetPage returns the page for url or ErrNotFound.
func (db *DB) GetPage(ctx context.Context, url string) (*Page, error) {
	var (
		p       Page
		fetched int64
	)
	err := db.Conn().QueryRowContext(ctx,
		`SELECT url, title, content, fetched_at FROM pages WHERE url = ?`, url).
		Scan(&p.URL, &p.Title, &p.Content, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", url, err)
	}
	p.FetchedAt = time.Unix(fetched, 0)
	return &p, nil
}

// ListPages returns every page in crawl order.
func (db *DB) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := db.Conn().QueryContext(ctx,
		`SELECT url, title, content, fetched_at FROM pages ORDER BY fetched_at, url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []Page
	for rows.Next() {
		var (
			p       Page
			fetched int64
		)
		if err := rows.Scan(&p.URL, &p.Title, &p.Content, &fetched); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.FetchedAt = time.Unix(fetched, 0)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// CountPages returns the number of stored pages.
func (db *DB) CountPages(ctx context.Context) (int, error) {
	return db.count(ctx, "pages")
}

// ReplaceChunks swaps all chunks of one source in a single transaction.
func (db *DB) ReplaceChunks(ctx context.Context, source string, chunks []Chunk) error {
	tx, err := db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return fmt.Errorf("failed to clear chunks for %s: %w", source, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source, title, position, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().Unix()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, source, c.Title, c.Position, c.Text, now); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// ListChunks returns every chunk ordered by source and position.
func (db *DB) ListChunks(ctx context.Context) ([]Chunk, error) {
	rows, err := db.Conn().QueryContext(ctx,
		`SELECT id, source, COALESCE(title, ''), position, text FROM chunks ORDER BY source, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Source, &c.Title, &c.Position, &c.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// CountChunks returns the number of stored chunks.
func (db *DB) CountChunks(ctx context.Context) (int, error) {
	return db.count(ctx, "chunks")
}

// AppendChatLog records one answered request.
func (db *DB) AppendChatLog(ctx context.Context, l *ChatLog) error {
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.Conn().ExecContext(ctx,
		`INSERT INTO chat_log (request_id, channel, session_id, query, label, status, answer, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.RequestID, l.Channel, l.SessionID, l.Query, l.Label, l.Status, l.Answer, l.Duration.Milliseconds(), created.Unix())
	if err != nil {
		return fmt.Errorf("failed to append chat log: %w", err)
	}
	return nil
}

// RecentChatLogs returns the newest entries for a session, newest first.
func (db *DB) RecentChatLogs(ctx context.Context, sessionID string, limit int) ([]ChatLog, error) {
	rows, err := db.Conn().QueryContext(ctx,
		`SELECT request_id, channel, COALESCE(session_id, ''), query, label, status, answer, duration_ms, created_at
		FROM chat_log WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []ChatLog
	for rows.Next() {
		var (
			l          ChatLog
			durationMs int64
			created    int64
		)
		if err := rows.Scan(&l.RequestID, &l.Channel, &l.SessionID, &l.Query, &l.Label, &l.Status, &l.Answer, &durationMs, &created); err != nil {
			return nil, fmt.Errorf("failed to scan chat log: %w", err)
		}
		l.Duration = time.Duration(durationMs) * time.Millisecond
		l.CreatedAt = time.Unix(created, 0)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// count is only called with constant table names.
func (db *DB) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
