package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
)

func newRepo(t *testing.T, initial string) (*UserRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	if initial != "" {
		require.NoError(t, os.WriteFile(path, []byte(initial), 0o600))
	}
	return NewUserRepository(path), path
}

func TestGet_MissingFileIsEmpty(t *testing.T) {
	repo, _ := newRepo(t, "")
	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGet_ReadsExistingLayout(t *testing.T) {
	repo, _ := newRepo(t, `{"42": {"id": 42, "username": null, "full_name": "Ivan", "status": "approved"}}`)

	u, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, &entity.User{ID: 42, FullName: "Ivan", Status: entity.StatusApproved}, u)
}

func TestGet_CorruptFile(t *testing.T) {
	repo, _ := newRepo(t, `{"42": `)
	_, err := repo.Get(context.Background(), 42)
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestUpsert_WritesAndPreservesUnknownFields(t *testing.T) {
	repo, path := newRepo(t, `{"7": {"id": 7, "username": "anna", "full_name": "Anna", "status": "pending", "note": "vip"}}`)
	ctx := context.Background()

	require.NoError(t, repo.SetStatus(ctx, 7, entity.StatusApproved))
	require.NoError(t, repo.Upsert(ctx, 8, entity.PatchFromActor(entity.Actor{ID: 8, FullName: "Oleg"}, entity.StatusPending)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "approved", doc["7"]["status"])
	assert.Equal(t, "vip", doc["7"]["note"])
	assert.Equal(t, "anna", doc["7"]["username"])
	assert.Nil(t, doc["8"]["username"])
	assert.Equal(t, float64(8), doc["8"]["id"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestCompareAndSetStatus_ExactlyOnce(t *testing.T) {
	repo, _ := newRepo(t, "")
	ctx := context.Background()
	require.NoError(t, repo.SetStatus(ctx, 42, entity.StatusPending))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		to := entity.StatusApproved
		if i%2 == 1 {
			to = entity.StatusRejected
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.CompareAndSetStatus(ctx, 42, entity.StatusPending, to)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestCompareAndSetStatus_MissingRecord(t *testing.T) {
	repo, _ := newRepo(t, "")
	ok, err := repo.CompareAndSetStatus(context.Background(), 9, entity.StatusPending, entity.StatusApproved)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAll(t *testing.T) {
	repo, _ := newRepo(t, `{"1": {"full_name": "A", "status": "pending"}, "2": {"full_name": "B", "status": "rejected"}}`)
	users, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
