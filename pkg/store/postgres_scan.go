package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

func translateNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// scanRow is the subset of pgx.Row / pgx.Rows that Scan needs, letting the
// approval and user-memory scanners serve both QueryRow and Query call sites.
type scanRow interface {
	Scan(dest ...any) error
}

func scanApproval(row scanRow) (*Approval, error) {
	return scanApprovalRows(row)
}

func scanApprovalRows(row scanRow) (*Approval, error) {
	var a Approval
	var actions []byte
	if err := row.Scan(&a.ID, &a.RunID, &a.TaskID, &a.Scope, &a.Title, &a.Description, &actions,
		&a.Status, &a.Decision, &a.DecidedBy, &a.DecidedAt); err != nil {
		return nil, translateNoRows(err)
	}
	if err := json.Unmarshal(actions, &a.ProposedActions); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanUserMemories(rows pgx.Rows) ([]*UserMemory, error) {
	var out []*UserMemory
	for rows.Next() {
		var um UserMemory
		var meta []byte
		var createdAt time.Time
		if err := rows.Scan(&um.ID, &um.Title, &um.Content, &um.Tags, &um.Pinned, &um.Source, &meta,
			&createdAt, &um.IsDeleted); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &um.Meta); err != nil {
			return nil, err
		}
		um.CreatedAt = createdAt
		out = append(out, &um)
	}
	return out, rows.Err()
}
