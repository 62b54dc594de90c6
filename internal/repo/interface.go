package repo

import (
	"context"

	"github.com/dmarukhin/tasknote-api/internal/model"
)

type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, owner, id string) (model.Task, error)
	List(ctx context.Context, owner string) ([]model.Task, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, owner, id string) error
}

type ImageRepository interface {
	Create(ctx context.Context, img model.Image) (model.Image, error)
	FindByHashes(ctx context.Context, hashes []string) ([]model.Image, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Image, error)
	Delete(ctx context.Context, id string) error
	ListOrphans(ctx context.Context) ([]model.Image, error)
}

type LogRepository interface {
	Create(ctx context.Context, l model.Log) (model.Log, error)
	ListByEntity(ctx context.Context, entity string) ([]model.Log, error)
}

// Store aggregates the repositories and the unit of work. WithinTx runs
// fn against a Store bound to one transaction: every write a workflow
// queues (task, images, audit logs) commits or fails as a unit, so an
// audit failure fails the entity write with it.
type Store interface {
	Tasks() TaskRepository
	Images() ImageRepository
	Logs() LogRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
