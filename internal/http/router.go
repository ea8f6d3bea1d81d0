package httpapi

import (
	"net/http"

	"dapoer-buffet-services/internal/cart"
	"dapoer-buffet-services/internal/config"
	"dapoer-buffet-services/internal/http/handlers"
	"dapoer-buffet-services/internal/middleware"
	"dapoer-buffet-services/internal/queue"
	"dapoer-buffet-services/internal/storage"
	"dapoer-buffet-services/internal/wizard"
	"dapoer-buffet-services/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Deps struct {
	DB      *pgxpool.Pool
	Logger  *zap.Logger
	Config  config.Config
	Queue   *queue.Client
	Store   *storage.ObjectStore
	Carts   *cart.Store
	Wizards *wizard.Store
	WS      *ws.Server
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(deps.Logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Session-Id",
				"Cache-Control",
				"Pragma",
			},
			ExposedHeaders:   []string{middleware.SessionHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := &handlers.Handler{
		DB:      deps.DB,
		Logger:  deps.Logger,
		Config:  cfg,
		Queue:   deps.Queue,
		Store:   deps.Store,
		Carts:   deps.Carts,
		Wizards: deps.Wizards,
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Use(middleware.GuestSession())

		r.Get("/packages", h.PublicPackagesList)
		r.Get("/packages/{id}", h.PublicPackageDetail)
		r.Get("/person-options/{id}/juice-info", h.PublicJuiceInfo)

		r.Get("/cart", h.CartGet)
		r.Post("/cart/items", h.CartAddItem)
		r.Put("/cart/items/{productId}", h.CartUpdateQuantity)
		r.Put("/cart/items/{productId}/notes", h.CartUpdateNotes)
		r.Delete("/cart/items/{productId}", h.CartRemoveItem)
		r.Delete("/cart", h.CartClear)
		r.Post("/cart/checkout", h.CartCheckout)

		r.Post("/buffet", h.WizardStart)
		r.Get("/buffet", h.WizardGet)
		r.Delete("/buffet", h.WizardCancel)
		r.Put("/buffet/package", h.WizardSelectPackage)
		r.Put("/buffet/person-option", h.WizardSelectPersonOption)
		r.Post("/buffet/steps/{stepId}/meals", h.WizardToggleMeal)
		r.Post("/buffet/advance", h.WizardAdvance)
		r.Post("/buffet/back", h.WizardBack)
		r.Put("/buffet/summary", h.WizardSummaryPut)
		r.Post("/buffet/submit", h.WizardSubmit)

		r.Get("/orders/{orderNumber}", h.PublicOrderDetail)
	})

	r.Post("/api/auth/login", h.Login)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(deps.DB, cfg.JWTSecret))

		r.Get("/meals", h.AdminMealsList)
		r.Post("/meals", h.AdminMealsCreate)
		r.Put("/meals/{id}", h.AdminMealsUpdate)
		r.Patch("/meals/{id}/toggle-active", h.AdminMealsToggleActive)
		r.Delete("/meals/{id}", h.AdminMealsDelete)

		r.Get("/categories", h.AdminCategoriesList)
		r.Post("/categories", h.AdminCategoriesCreate)
		r.Put("/categories/{id}", h.AdminCategoriesUpdate)
		r.Delete("/categories/{id}", h.AdminCategoriesDelete)

		r.Get("/packages", h.AdminPackagesList)
		r.Post("/packages", h.AdminPackagesCreate)
		r.Put("/packages/{id}", h.AdminPackagesUpdate)
		r.Delete("/packages/{id}", h.AdminPackagesDelete)
		r.Post("/packages/{id}/person-options", h.AdminPersonOptionsCreate)
		r.Put("/packages/{id}/person-options/{optionId}", h.AdminPersonOptionsUpdate)
		r.Delete("/packages/{id}/person-options/{optionId}", h.AdminPersonOptionsDelete)
		r.Post("/packages/{id}/steps", h.AdminStepsCreate)
		r.Put("/packages/{id}/steps/{stepId}", h.AdminStepsUpdate)
		r.Delete("/packages/{id}/steps/{stepId}", h.AdminStepsDelete)

		r.Get("/customers", h.AdminCustomersList)
		r.Post("/customers", h.AdminCustomersCreate)
		r.Put("/customers/{id}", h.AdminCustomersUpdate)
		r.Delete("/customers/{id}", h.AdminCustomersDelete)

		r.Get("/users", h.AdminUsersList)
		r.Post("/users", h.AdminUsersCreate)
		r.Put("/users/{id}", h.AdminUsersUpdate)
		r.Delete("/users/{id}", h.AdminUsersDelete)

		r.Get("/orders", h.AdminOrdersList)
		r.Get("/orders/{id}", h.AdminOrderDetail)
		r.Put("/orders/{id}/status", h.AdminOrderUpdateStatus)
		r.Get("/orders/{id}/receipt", h.AdminOrderReceiptPDF)

		r.Post("/uploads/{target}/{id}", h.AdminUploadImage)
	})

	if deps.WS != nil {
		r.Get("/ws/admin/orders", deps.WS.AdminOrdersWS)
		r.Get("/ws/public/order", deps.WS.PublicOrderWS)
	}

	return r
}
