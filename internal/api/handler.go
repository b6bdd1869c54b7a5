package api

import (
	"log/slog"

	"github.com/shaiso/Conveyor/internal/collector"
	"github.com/shaiso/Conveyor/internal/submitter"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	submitter *submitter.Submitter
	store     *collector.Store
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Submitter *submitter.Submitter
	Store     *collector.Store
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		submitter: cfg.Submitter,
		store:     cfg.Store,
		logger:    logger,
	}
}
