package storage

import (
	"context"
	"fmt"
	"os"
)

// Swap atomically replaces the underlying connection with one opened on
// newPath, typically a freshly downloaded corpus snapshot. In-flight
// queries on the old connection finish before it is closed, and the old
// file is removed when the path changed.
//
// Swap process:
//  1. Open and validate the new database
//  2. Acquire write lock (blocks new queries)
//  3. Swap the connection and path
//  4. Release write lock
//  5. Close the old connection asynchronously
func (db *DB) Swap(ctx context.Context, newPath string) error {
	conn, err := open(ctx, newPath)
	if err != nil {
		return fmt.Errorf("hotswap: open new db: %w", err)
	}

	db.mu.Lock()
	oldConn, oldPath := db.conn, db.path
	db.conn, db.path = conn, newPath
	db.mu.Unlock()

	go func() {
		// sql.DB.Close waits for in-flight queries
		_ = oldConn.Close()
		if oldPath != newPath && oldPath != MemoryPath {
			_ = os.Remove(oldPath)
			_ = os.Remove(oldPath + "-wal")
			_ = os.Remove(oldPath + "-shm")
		}
	}()

	return nil
}

// CreateSnapshot writes a consistent copy of the database to dstPath using
// VACUUM INTO. dstPath must not exist.
func (db *DB) CreateSnapshot(ctx context.Context, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return fmt.Errorf("snapshot: %s already exists", dstPath)
	}
	if _, err := db.Conn().ExecContext(ctx, "VACUUM INTO ?", dstPath); err != nil {
		return fmt.Errorf("snapshot: vacuum into %s: %w", dstPath, err)
	}
	return nil
}
