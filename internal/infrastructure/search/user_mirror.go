package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
)

// UserMirror wraps a directory and indexes every written record into Elasticsearch.
// Indexing is best effort: the directory stays the source of truth and mirror
// failures are only logged.
type UserMirror struct {
	repo.UserRepository
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewUserMirror(inner repo.UserRepository, es *elasticsearch.Client, index string, logger *logrus.Logger) *UserMirror {
	return &UserMirror{UserRepository: inner, es: es, index: index, logger: logger}
}

type userDoc struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"full_name"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

func (m *UserMirror) Upsert(ctx context.Context, id int64, patch entity.UserPatch) error {
	if err := m.UserRepository.Upsert(ctx, id, patch); err != nil {
		return err
	}
	m.mirror(ctx, id)
	return nil
}

func (m *UserMirror) SetStatus(ctx context.Context, id int64, status entity.Status) error {
	if err := m.UserRepository.SetStatus(ctx, id, status); err != nil {
		return err
	}
	m.mirror(ctx, id)
	return nil
}

func (m *UserMirror) CompareAndSetStatus(ctx context.Context, id int64, from, to entity.Status) (bool, error) {
	ok, err := m.UserRepository.CompareAndSetStatus(ctx, id, from, to)
	if err == nil && ok {
		m.mirror(ctx, id)
	}
	return ok, err
}

func (m *UserMirror) mirror(ctx context.Context, id int64) {
	u, err := m.UserRepository.Get(ctx, id)
	if err != nil {
		m.logger.WithError(err).WithField("user_id", id).Warn("es mirror: reread failed")
		return
	}
	if err := m.indexUser(ctx, u); err != nil {
		m.logger.WithError(err).WithField("user_id", id).Warn("es index failed")
	}
}

func (m *UserMirror) indexUser(ctx context.Context, u *entity.User) error {
	b, err := json.Marshal(userDoc{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Status:    u.Status.String(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: m.index, DocumentID: strconv.FormatInt(u.ID, 10), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, m.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index response: %s", res.Status())
	}
	return nil
}

// SearchUsers runs a multi_match over username and full name, optionally filtered by status.
func (m *UserMirror) SearchUsers(ctx context.Context, q string, status string, size int) ([]entity.User, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	boolQuery := map[string]any{
		"must": []any{map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^3", "username.text^2", "full_name"},
			},
		}},
	}
	if status != "" {
		boolQuery["filter"] = []any{map[string]any{"term": map[string]any{"status": status}}}
	}
	b, err := json.Marshal(map[string]any{"query": map[string]any{"bool": boolQuery}, "size": size})
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := m.es.Search(m.es.Search.WithContext(c), m.es.Search.WithIndex(m.index), m.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search response: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source userDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		st, err := entity.ParseStatus(h.Source.Status)
		if err != nil {
			continue
		}
		out = append(out, entity.User{ID: h.Source.ID, Username: h.Source.Username, FullName: h.Source.FullName, Status: st})
	}
	return out, nil
}

var _ repo.UserRepository = (*UserMirror)(nil)

// UsersMapping keeps status and username exact-match while full_name stays analyzed.
const UsersMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "long"},
      "username":   {"type": "keyword", "fields": {"text": {"type": "text"}}},
      "full_name":  {"type": "text"},
      "status":     {"type": "keyword"},
      "updated_at": {"type": "date"}
    }
  }
}`
