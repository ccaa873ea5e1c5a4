package storage

import (
	"fmt"

	"tavern/internal/approval"
)

// AppendHistory records a finalized approval decision. Implements
// approval.HistoryStore.
func (db *DB) AppendHistory(entry approval.HistoryEntry) error {
	_, err := db.Exec(
		"INSERT INTO approval_history (request_id, npc_name, outcome, decided_at) VALUES (?, ?, ?, ?)",
		entry.RequestID, entry.NPCName, entry.Outcome, entry.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append approval history: %w", err)
	}
	return nil
}

// ListHistory returns the most recent approval decisions, newest first.
// A limit of 0 or less returns everything.
func (db *DB) ListHistory(limit int) ([]approval.HistoryEntry, error) {
	query := "SELECT request_id, npc_name, outcome, decided_at FROM approval_history ORDER BY decided_at DESC, id DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approval history: %w", err)
	}
	defer rows.Close()

	var entries []approval.HistoryEntry
	for rows.Next() {
		var e approval.HistoryEntry
		if err := rows.Scan(&e.RequestID, &e.NPCName, &e.Outcome, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
