package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/followup/internal/domain"
	"github.com/shaiso/followup/internal/followup"
	"github.com/shaiso/followup/internal/intake"
	"github.com/shaiso/followup/internal/repo"
)

// LeadService — операции над leads. Реализация: intake.Service.
type LeadService interface {
	Import(ctx context.Context, emails []string, interval int) ([]*domain.Lead, error)
	TestLead(ctx context.Context, email string) (intake.TestLeadResult, error)
	List(ctx context.Context, filter repo.LeadFilter) ([]domain.Lead, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) (*domain.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

// PassTrigger запускает проход вне расписания. Реализация: scheduler.Loop.
type PassTrigger interface {
	Tick(ctx context.Context) (followup.PassResult, error)
	LastResult() (followup.PassResult, bool)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	leads   LeadService
	passes  PassTrigger
	logger  *slog.Logger
	origins []string
}

// Config — конфигурация для создания Handler.
type Config struct {
	Leads  LeadService
	Passes PassTrigger // опционально: без него /passes отвечает 503
	Logger *slog.Logger

	// AllowedOrigins — CORS origins (default: "*").
	AllowedOrigins []string
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		leads:   cfg.Leads,
		passes:  cfg.Passes,
		logger:  logger,
		origins: origins,
	}
}
