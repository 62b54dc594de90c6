package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmarukhin/tasknote-api/internal/model"
)

// LogRepo appends audit records. There is no update or delete path on
// purpose: the trail is immutable.
type LogRepo struct {
	q querier
}

func NewLogRepo(q querier) *LogRepo {
	return &LogRepo{q: q}
}

func (r *LogRepo) Create(ctx context.Context, l model.Log) (model.Log, error) {
	l.ID = uuid.NewString()
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	// nil snapshots must land as SQL NULL, not the json literal "null"
	var prev, curr any
	if l.Previous != nil {
		prev = l.Previous
	}
	if l.Current != nil {
		curr = l.Current
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO logs (id, type, user_id, user_addr, entity, previous, current, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.Type, l.UserID, l.UserAddr, l.Entity, prev, curr, l.CreatedAt, l.UpdatedAt)
	return l, err
}

func (r *LogRepo) ListByEntity(ctx context.Context, entity string) ([]model.Log, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, type, user_id, user_addr, entity, previous, current, created_at, updated_at
		FROM logs
		WHERE entity = $1
		ORDER BY created_at, id
	`, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]model.Log, 0)
	for rows.Next() {
		var l model.Log
		if err := rows.Scan(&l.ID, &l.Type, &l.UserID, &l.UserAddr, &l.Entity, &l.Previous, &l.Current, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
