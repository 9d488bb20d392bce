package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
)

// record is one user object of the file. Extra keys written by other tools survive a rewrite.
type record map[string]json.RawMessage

// UserRepository stores every user in a single JSON object keyed by the stringified id.
// All operations are serialized by one mutex since the whole file is rewritten on each write.
type UserRepository struct {
	mu   sync.Mutex
	path string
}

func NewUserRepository(path string) *UserRepository {
	return &UserRepository{path: path}
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := data[key(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return decode(id, rec)
}

func (r *UserRepository) Upsert(ctx context.Context, id int64, patch entity.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}
	rec := data[key(id)]
	if rec == nil {
		rec = record{}
	}
	if err := merge(rec, id, patch); err != nil {
		return err
	}
	data[key(id)] = rec
	return r.save(data)
}

func (r *UserRepository) SetStatus(ctx context.Context, id int64, status entity.Status) error {
	return r.Upsert(ctx, id, entity.UserPatch{Status: &status})
}

func (r *UserRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to entity.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return false, err
	}
	rec, ok := data[key(id)]
	if !ok {
		return false, nil
	}
	u, err := decode(id, rec)
	if err != nil {
		return false, err
	}
	if u.Status != from {
		return false, nil
	}
	if err := merge(rec, id, entity.UserPatch{Status: &to}); err != nil {
		return false, err
	}
	return true, r.save(data)
}

// All returns every stored user, used by the import tool.
func (r *UserRepository) All(ctx context.Context) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]entity.User, 0, len(data))
	for k, rec := range data {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("users file: bad key %q: %w", k, err)
		}
		u, err := decode(id, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

func key(id int64) string { return strconv.FormatInt(id, 10) }

func (r *UserRepository) load() (map[string]record, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]record{}, nil
	}
	data := map[string]record{}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	return data, nil
}

// save writes to a temp file in the same directory and renames it over the original.
func (r *UserRepository) save(data map[string]record) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

func merge(rec record, id int64, patch entity.UserPatch) error {
	set := func(k string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		rec[k] = b
		return nil
	}
	if err := set("id", id); err != nil {
		return err
	}
	if patch.Username != nil {
		var v any
		if *patch.Username != "" {
			v = *patch.Username
		}
		if err := set("username", v); err != nil {
			return err
		}
	}
	if patch.FullName != nil {
		if err := set("full_name", *patch.FullName); err != nil {
			return err
		}
	}
	if patch.Status != nil {
		if err := set("status", *patch.Status); err != nil {
			return err
		}
	}
	return nil
}

func decode(id int64, rec record) (*entity.User, error) {
	u := &entity.User{ID: id}
	if raw, ok := rec["username"]; ok {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("user %d: username: %w", id, err)
		}
		if s != nil {
			u.Username = *s
		}
	}
	if raw, ok := rec["full_name"]; ok {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("user %d: full_name: %w", id, err)
		}
		if s != nil {
			u.FullName = *s
		}
	}
	raw, ok := rec["status"]
	if !ok {
		return nil, fmt.Errorf("user %d: missing status", id)
	}
	if err := json.Unmarshal(raw, &u.Status); err != nil {
		return nil, fmt.Errorf("user %d: status: %w", id, err)
	}
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
