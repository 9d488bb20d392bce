package router

import (
	"context"
	"fmt"

	"github.com/oksasatya/pulse-correction-bot/internal/container"
	handlers "github.com/oksasatya/pulse-correction-bot/internal/interface/http"
	"github.com/oksasatya/pulse-correction-bot/internal/router/modules"
)

func buildUserHandler() *handlers.UserHandler {
	// a nil mirror must stay a nil interface so the handler can report search as disabled
	var searcher handlers.UserSearcher
	if m := container.GetUserMirror(); m != nil {
		searcher = m
	}
	return handlers.NewUserHandler(container.GetUsers(), searcher, container.GetLogger())
}

// backendChecks pings every backend the process was started with.
func backendChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if p := container.GetPGPool(); p != nil {
		checks["postgres"] = p.Ping
	}
	if r := container.GetRedis(); r != nil {
		checks["redis"] = func(ctx context.Context) error { return r.Ping(ctx).Err() }
	}
	if es := container.GetES(); es != nil {
		checks["elasticsearch"] = func(ctx context.Context) error {
			res, err := es.Ping(es.Ping.WithContext(ctx))
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("ping: %s", res.Status())
			}
			return nil
		}
	}
	if pub := container.GetRabbitPub(); pub != nil {
		checks["rabbitmq"] = func(context.Context) error { return pub.Ping() }
	}
	if gcs := container.GetGCS(); gcs != nil {
		bucket := container.GetConfig().GCSBucket
		checks["gcs"] = func(ctx context.Context) error {
			_, err := gcs.Bucket(bucket).Attrs(ctx)
			return err
		}
	}
	return checks
}

func buildHealthHandler(mode string) *handlers.HealthHandler {
	gauges := map[string]func() int{}
	if l := container.GetLanes(); l != nil {
		gauges["active_lanes"] = l.Active
	}
	if a := container.GetAlbums(); a != nil {
		gauges["pending_albums"] = a.Pending
	}
	return handlers.NewHealthHandler(mode, gauges, backendChecks())
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()

	mode := "polling"
	if cfg.WebhookURL != "" {
		mode = "webhook"
		wh := handlers.NewWebhookHandler(container.GetLanes(), container.GetLogger())
		r.AddRoot(modules.NewWebhookModule(wh, cfg.WebhookSecret))
	}

	r.Add(modules.NewHealthModule(buildHealthHandler(mode)))
	r.Add(modules.NewUserModule(buildUserHandler(), cfg.BotSecretKey, rdb))
	r.AddRoot(modules.NewMetricsModule(rdb))
}
