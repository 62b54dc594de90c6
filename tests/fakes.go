package tests

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmarukhin/tasknote-api/internal/model"
	"github.com/dmarukhin/tasknote-api/internal/repo"
)

// MemoryStore is an in-process repo.Store for handler and service
// tests. WithinTx runs the callback directly: there is no rollback, so
// tests that care about partial failure assert on write counts instead.
type MemoryStore struct {
	mu     sync.Mutex
	tasks  map[string]model.Task
	images map[string]model.Image
	logs   []model.Log
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:  map[string]model.Task{},
		images: map[string]model.Image{},
	}
}

func (s *MemoryStore) Tasks() repo.TaskRepository   { return &memTasks{s} }
func (s *MemoryStore) Images() repo.ImageRepository { return &memImages{s} }
func (s *MemoryStore) Logs() repo.LogRepository     { return &memLogs{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(repo.Store) error) error {
	return fn(s)
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// AllImages returns every registry entry, for assertions.
func (s *MemoryStore) AllImages() []model.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	images := make([]model.Image, 0, len(s.images))
	for _, img := range s.images {
		images = append(images, img)
	}
	return images
}

// AllLogs returns the audit trail in write order, for assertions.
func (s *MemoryStore) AllLogs() []model.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Log(nil), s.logs...)
}

// TaskCount reports how many tasks are stored, for assertions.
func (s *MemoryStore) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

type memTasks struct{ s *MemoryStore }

func (r *memTasks) Create(ctx context.Context, t model.Task) (model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.NewString()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ImageIDs == nil {
		t.ImageIDs = []string{}
	}
	r.s.tasks[t.ID] = t
	return t, nil
}

func (r *memTasks) Get(ctx context.Context, owner, id string) (model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok || t.Owner != owner {
		return model.Task{}, repo.ErrNotFound
	}
	return t, nil
}

func (r *memTasks) List(ctx context.Context, owner string) ([]model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tasks := make([]model.Task, 0)
	for _, t := range r.s.tasks {
		if t.Owner == owner {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (r *memTasks) Update(ctx context.Context, t model.Task) (model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.tasks[t.ID]
	if !ok || prev.Owner != t.Owner {
		return model.Task{}, repo.ErrNotFound
	}
	t.CreatedAt = prev.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	if t.ImageIDs == nil {
		t.ImageIDs = []string{}
	}
	r.s.tasks[t.ID] = t
	return t, nil
}

func (r *memTasks) Delete(ctx context.Context, owner, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok || t.Owner != owner {
		return repo.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

type memImages struct{ s *MemoryStore }

func (r *memImages) Create(ctx context.Context, img model.Image) (model.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// mirror the unique index on hash
	for _, existing := range r.s.images {
		if existing.Hash == img.Hash {
			return model.Image{}, fmt.Errorf("duplicate image hash %s", img.Hash)
		}
	}
	img.ID = uuid.NewString()
	img.CreatedAt = time.Now().UTC()
	r.s.images[img.ID] = img
	return img, nil
}

func (r *memImages) FindByHashes(ctx context.Context, hashes []string) ([]model.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		want[h] = true
	}
	var found []model.Image
	for _, img := range r.s.images {
		if want[img.Hash] {
			found = append(found, img)
		}
	}
	return found, nil
}

func (r *memImages) GetByIDs(ctx context.Context, ids []string) ([]model.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found []model.Image
	for _, id := range ids {
		if img, ok := r.s.images[id]; ok {
			found = append(found, img)
		}
	}
	return found, nil
}

func (r *memImages) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.images[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.images, id)
	return nil
}

func (r *memImages) ListOrphans(ctx context.Context) ([]model.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	referenced := map[string]bool{}
	for _, t := range r.s.tasks {
		for _, id := range t.ImageIDs {
			referenced[id] = true
		}
	}
	var orphans []model.Image
	for id, img := range r.s.images {
		if !referenced[id] {
			orphans = append(orphans, img)
		}
	}
	return orphans, nil
}

type memLogs struct{ s *MemoryStore }

func (r *memLogs) Create(ctx context.Context, l model.Log) (model.Log, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = uuid.NewString()
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	r.s.logs = append(r.s.logs, l)
	return l, nil
}

func (r *memLogs) ListByEntity(ctx context.Context, entity string) ([]model.Log, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var logs []model.Log
	for _, l := range r.s.logs {
		if l.Entity == entity {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

// MemoryBlob is an in-process blob.Store counting uploads and deletes.
type MemoryBlob struct {
	mu      sync.Mutex
	objects map[string][]byte

	UploadCount int
	DeleteCount int
	UploadErr   error
	DeleteErr   error
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{objects: map[string][]byte{}}
}

func (b *MemoryBlob) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.UploadErr != nil {
		return "", "", b.UploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}
	key := uuid.NewString()
	b.objects[key] = data
	b.UploadCount++
	return key, "https://blob.test/" + key, nil
}

func (b *MemoryBlob) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	delete(b.objects, key)
	b.DeleteCount++
	return nil
}

// ObjectCount reports how many blobs are stored, for assertions.
func (b *MemoryBlob) ObjectCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
