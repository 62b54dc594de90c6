package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmarukhin/tasknote-api/internal/model"
)

type TaskRepo struct {
	q querier
}

func NewTaskRepo(q querier) *TaskRepo {
	return &TaskRepo{q: q}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	t.ID = uuid.NewString()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ImageIDs == nil {
		t.ImageIDs = []string{}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO tasks (id, owner, name, description, start_date, end_date, priority, completed, image_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.Owner, t.Name, t.Description, t.StartDate, t.EndDate, t.Priority, t.Completed, t.ImageIDs, t.CreatedAt, t.UpdatedAt)
	return t, err
}

func (r *TaskRepo) Get(ctx context.Context, owner, id string) (model.Task, error) {
	var t model.Task
	err := r.q.QueryRow(ctx, `
		SELECT id, owner, name, description, start_date, end_date, priority, completed, image_ids, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND owner = $2
	`, id, owner).Scan(
		&t.ID, &t.Owner, &t.Name, &t.Description, &t.StartDate, &t.EndDate, &t.Priority, &t.Completed, &t.ImageIDs, &t.CreatedAt, &t.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, owner string) ([]model.Task, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, owner, name, description, start_date, end_date, priority, completed, image_ids, created_at, updated_at
		FROM tasks
		WHERE owner = $1
		ORDER BY created_at DESC, id DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Owner, &t.Name, &t.Description, &t.StartDate, &t.EndDate, &t.Priority, &t.Completed, &t.ImageIDs, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	t.UpdatedAt = time.Now().UTC()
	if t.ImageIDs == nil {
		t.ImageIDs = []string{}
	}

	err := r.q.QueryRow(ctx, `
		UPDATE tasks
		SET name = $3, description = $4, start_date = $5, end_date = $6, priority = $7, completed = $8, image_ids = $9, updated_at = $10
		WHERE id = $1 AND owner = $2
		RETURNING created_at
	`, t.ID, t.Owner, t.Name, t.Description, t.StartDate, t.EndDate, t.Priority, t.Completed, t.ImageIDs, t.UpdatedAt).Scan(&t.CreatedAt)

	if err == pgx.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r *TaskRepo) Delete(ctx context.Context, owner, id string) error {
	cmd, err := r.q.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND owner = $2", id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
