package handler

import (
	"context"
	"time"

	"github.com/divecrm/divecrm/internal/config"
	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/renderer"
	"github.com/divecrm/divecrm/internal/scheduler"
	"github.com/divecrm/divecrm/internal/service"
)

// CustomerStore is the slice of the customer repository the handlers need.
type CustomerStore interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*model.Customer, error)
	Update(ctx context.Context, c *model.Customer) error
	SaveFeedback(ctx context.Context, id string, feedback string, ts time.Time) error
	Delete(ctx context.Context, id string) error
}

// TemplateStore is the slice of the template repository the handlers need.
type TemplateStore interface {
	Upsert(ctx context.Context, t *model.EmailTemplate) error
	GetByKindAndLanguage(ctx context.Context, kind model.EmailKind, lang model.Language) (*model.EmailTemplate, error)
	List(ctx context.Context) ([]*model.EmailTemplate, error)
	Delete(ctx context.Context, kind model.EmailKind, lang model.Language) error
	DeleteByKind(ctx context.Context, kind model.EmailKind) error
}

// DeliveryStore exposes a customer's delivery history.
type DeliveryStore interface {
	ListByCustomer(ctx context.Context, customerID string) ([]*model.DeliveryRecord, error)
}

// Previewer renders an email without sending it.
type Previewer interface {
	Render(ctx context.Context, kind model.EmailKind, c *model.Customer) (*renderer.Rendered, error)
}

// Ticker runs one scheduler pass on demand.
type Ticker interface {
	RunTick(ctx context.Context, now time.Time) scheduler.TickResult
}

// Handler holds all HTTP handlers
type Handler struct {
	db          *database.Postgres
	rdb         *database.Redis
	log         *logger.Logger
	cfg         *config.Config
	authSvc     *service.AuthService
	dispatchSvc *service.DispatchService
	customers   CustomerStore
	templates   TemplateStore
	deliveries  DeliveryStore
	previewer   Previewer
	ticker      Ticker
}

// New creates a new Handler instance
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, authSvc *service.AuthService, dispatchSvc *service.DispatchService, customers CustomerStore, templates TemplateStore, deliveries DeliveryStore, previewer Previewer, ticker Ticker) *Handler {
	return &Handler{
		db:          db,
		rdb:         rdb,
		log:         log,
		cfg:         cfg,
		authSvc:     authSvc,
		dispatchSvc: dispatchSvc,
		customers:   customers,
		templates:   templates,
		deliveries:  deliveries,
		previewer:   previewer,
		ticker:      ticker,
	}
}
