package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moritahiro/wearmarket-backend/api/controllers"
	"github.com/moritahiro/wearmarket-backend/api/middleware"
	"github.com/moritahiro/wearmarket-backend/internal/notifications"
	"github.com/moritahiro/wearmarket-backend/internal/orders"
	"github.com/moritahiro/wearmarket-backend/pkg/auth/session"
	"github.com/moritahiro/wearmarket-backend/pkg/config"
	"github.com/moritahiro/wearmarket-backend/pkg/logger"
	"github.com/moritahiro/wearmarket-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	ordersSvc orders.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/checkout", controllers.Checkout(ordersSvc, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersSvc, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersSvc, logg))
			r.Patch("/{orderId}", controllers.UpdateOrder(ordersSvc, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(ordersSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
