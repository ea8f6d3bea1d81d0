package handlers

import (
	"dapoer-buffet-services/internal/cart"
	"dapoer-buffet-services/internal/config"
	"dapoer-buffet-services/internal/queue"
	"dapoer-buffet-services/internal/storage"
	"dapoer-buffet-services/internal/wizard"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Handler struct {
	DB      *pgxpool.Pool
	Logger  *zap.Logger
	Config  config.Config
	Queue   *queue.Client
	Store   *storage.ObjectStore
	Carts   *cart.Store
	Wizards *wizard.Store
}
