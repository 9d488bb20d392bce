package middleware

import (
	"net"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
)

// AllowPrivateIP lets requests from loopback and private networks bypass the limit,
// which keeps in-cluster scrapers and probes unthrottled.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// AllowAdmins exempts administrators from the per-user event limit.
func AllowAdmins(reviewers application.Reviewers) EventAllowFunc {
	return func(ev *entity.Event) bool {
		return reviewers.IsAdmin(ev.Actor.ID)
	}
}
