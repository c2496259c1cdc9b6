package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nmoreyra/tienda-backend/api/controllers"
	"github.com/nmoreyra/tienda-backend/api/middleware"
	"github.com/nmoreyra/tienda-backend/pkg/config"
	"github.com/nmoreyra/tienda-backend/pkg/logger"
	pkgredis "github.com/nmoreyra/tienda-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	redisClient *pkgredis.Client,
	catalogRepo controllers.CatalogReader,
	discountService controllers.DiscountService,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(catalogRepo, logg))
			r.Get("/{productId}", controllers.GetProduct(catalogRepo, logg))
		})
		r.Get("/groups", controllers.ListGroups(catalogRepo, logg))
	})

	// a typed-nil *redis.Client must not reach the middleware as a non-nil
	// interface
	var idempotencyStore pkgredis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Get("/ping", controllers.AdminPing())
		r.Route("/v1/discounts", func(r chi.Router) {
			r.Get("/", controllers.ListDiscounts(discountService, logg))
			r.Post("/group", controllers.ApplyGroupDiscount(discountService, logg))
			r.Post("/product", controllers.ApplyProductDiscount(discountService, logg))
			r.Patch("/{discountId}", controllers.UpdateDiscount(discountService, logg))
			r.Delete("/{discountId}", controllers.DeleteDiscount(discountService, logg))
		})
	})

	return r
}
