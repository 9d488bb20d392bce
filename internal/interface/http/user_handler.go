package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
	"github.com/oksasatya/pulse-correction-bot/pkg/response"
	"github.com/oksasatya/pulse-correction-bot/pkg/validation"
)

// UserSearcher is the full-text user search; nil when Elasticsearch is not configured.
type UserSearcher interface {
	SearchUsers(ctx context.Context, q, status string, size int) ([]entity.User, error)
}

type UserHandler struct {
	Users  repo.UserRepository
	Search UserSearcher
	Logger *logrus.Logger
}

func NewUserHandler(users repo.UserRepository, search UserSearcher, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Search: search, Logger: logger}
}

type userURI struct {
	ID int64 `uri:"id" binding:"required,gt=0"`
}

type searchQuery struct {
	Q      string `form:"q" binding:"required,min=1,max=64"`
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Size   int    `form:"size" binding:"omitempty,min=1,max=50"`
}

type userView struct {
	ID       int64   `json:"id"`
	Username *string `json:"username"`
	FullName string  `json:"full_name"`
	Status   string  `json:"status"`
}

func toView(u entity.User) userView {
	v := userView{ID: u.ID, FullName: u.FullName, Status: u.Status.String()}
	if u.Username != "" {
		name := u.Username
		v.Username = &name
	}
	return v
}

// Get returns one directory record.
func (h *UserHandler) Get(c *gin.Context) {
	var uri userURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid user id", validation.ToDetails(err))
		return
	}
	u, err := h.Users.Get(c.Request.Context(), uri.ID)
	if errors.Is(err, repo.ErrNotFound) {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	if err != nil {
		helpers.LogError(h.Logger, "user lookup failed", err, logrus.Fields{"user_id": uri.ID})
		response.Error[any](c, http.StatusInternalServerError, "directory unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, toView(*u), "ok", nil)
}

// SearchUsers runs a full-text search over the user mirror.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	if h.Search == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "search is not configured", nil)
		return
	}
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	if q.Size == 0 {
		q.Size = 10
	}
	users, err := h.Search.SearchUsers(c.Request.Context(), q.Q, q.Status, q.Size)
	if err != nil {
		helpers.LogError(h.Logger, "user search failed", err, logrus.Fields{"q": q.Q})
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toView(u))
	}
	response.Success(c, http.StatusOK, out, "ok", map[string]any{"count": len(out)})
}
