package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarukhin/tasknote-api/internal/model"
)

func setupTestDB(t *testing.T) *PgStore {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	pool.Exec(context.Background(), "TRUNCATE tasks, images, logs")

	return NewStore(pool)
}

func sampleTask(owner string) model.Task {
	end := time.Date(2031, 1, 15, 0, 0, 0, 0, time.UTC)
	return model.Task{
		Owner:       owner,
		Name:        "Buy milk",
		Description: "2%",
		EndDate:     end,
		Priority:    model.PriorityMedium,
	}
}

func TestTaskRepo_CRUD(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	created, err := store.Tasks().Create(ctx, sampleTask("user-a"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Tasks().Get(ctx, "user-a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Empty(t, got.ImageIDs)

	_, err = store.Tasks().Get(ctx, "user-b", created.ID)
	assert.ErrorIs(t, err, ErrNotFound, "other owners must not see the task")

	got.Name = "Buy oat milk"
	got.ImageIDs = []string{"img-1", "img-2"}
	updated, err := store.Tasks().Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	reread, err := store.Tasks().Get(ctx, "user-a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", reread.Name)
	assert.Equal(t, []string{"img-1", "img-2"}, reread.ImageIDs)

	err = store.Tasks().Delete(ctx, "user-b", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Tasks().Delete(ctx, "user-a", created.ID))
	_, err = store.Tasks().Get(ctx, "user-a", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepo_ListScopedByOwner(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Tasks().Create(ctx, sampleTask("user-a"))
		require.NoError(t, err)
	}
	_, err := store.Tasks().Create(ctx, sampleTask("user-b"))
	require.NoError(t, err)

	tasks, err := store.Tasks().List(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.Equal(t, "user-a", task.Owner)
	}
}

func TestImageRepo_FindByHashes(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	a, err := store.Images().Create(ctx, model.Image{Hash: "hash-a", Key: "key-a", URL: "https://blob/a"})
	require.NoError(t, err)
	_, err = store.Images().Create(ctx, model.Image{Hash: "hash-b", Key: "key-b", URL: "https://blob/b"})
	require.NoError(t, err)

	found, err := store.Images().FindByHashes(ctx, []string{"hash-a", "hash-missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	none, err := store.Images().FindByHashes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestImageRepo_HashUnique(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.Images().Create(ctx, model.Image{Hash: "hash-a", Key: "key-1", URL: "u1"})
	require.NoError(t, err)

	_, err = store.Images().Create(ctx, model.Image{Hash: "hash-a", Key: "key-2", URL: "u2"})
	assert.Error(t, err, "registry holds at most one record per fingerprint")
}

func TestImageRepo_ListOrphans(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	referenced, err := store.Images().Create(ctx, model.Image{Hash: "hash-ref", Key: "k1", URL: "u1"})
	require.NoError(t, err)
	orphan, err := store.Images().Create(ctx, model.Image{Hash: "hash-orphan", Key: "k2", URL: "u2"})
	require.NoError(t, err)

	task := sampleTask("user-a")
	task.ImageIDs = []string{referenced.ID}
	_, err = store.Tasks().Create(ctx, task)
	require.NoError(t, err)

	orphans, err := store.Images().ListOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)
}

func TestLogRepo_SnapshotRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.Logs().Create(ctx, model.Log{
		Type:     model.LogUpdate,
		UserID:   "user-a",
		UserAddr: "192.0.2.10:51234",
		Entity:   model.EntityTask,
		Previous: model.Snapshot{"name": "Buy milk", "completed": false},
		Current:  model.Snapshot{"name": "Buy oat milk", "completed": true},
	})
	require.NoError(t, err)

	_, err = store.Logs().Create(ctx, model.Log{
		Type:    model.LogInsert,
		UserID:  "user-a",
		Entity:  model.EntityTask,
		Current: model.Snapshot{"name": "Another"},
	})
	require.NoError(t, err)

	logs, err := store.Logs().ListByEntity(ctx, model.EntityTask)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, model.LogUpdate, logs[0].Type)
	assert.Equal(t, "Buy milk", logs[0].Previous["name"])
	assert.Equal(t, true, logs[0].Current["completed"])

	assert.Nil(t, logs[1].Previous, "insert carries no previous snapshot")
	assert.Equal(t, "Another", logs[1].Current["name"])
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	boom := assert.AnError
	err := store.WithinTx(ctx, func(st Store) error {
		if _, err := st.Tasks().Create(ctx, sampleTask("user-a")); err != nil {
			return err
		}
		if _, err := st.Logs().Create(ctx, model.Log{Type: model.LogInsert, UserID: "user-a", Entity: model.EntityTask}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	tasks, err := store.Tasks().List(ctx, "user-a")
	require.NoError(t, err)
	assert.Empty(t, tasks, "task write must roll back with the failed batch")

	logs, err := store.Logs().ListByEntity(ctx, model.EntityTask)
	require.NoError(t, err)
	assert.Empty(t, logs, "audit write rolls back together with the entity")
}
