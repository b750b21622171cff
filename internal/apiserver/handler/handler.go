package handler

import (
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/approval"
	"github.com/quarrydirect/portal/internal/auth"
	"github.com/quarrydirect/portal/internal/database"
	"github.com/quarrydirect/portal/internal/permission"
	"github.com/quarrydirect/portal/pkg/metrics"
)

// Handler carries the services the HTTP layer delegates to. Handlers hold no
// state of their own.
type Handler struct {
	logger   *zap.Logger
	db       database.Database
	svc      *auth.Service
	workflow *approval.Workflow
	resolver *permission.Resolver
	metrics  *metrics.Metrics
}

// NewHandler creates the handler set. Metrics may be nil when the metrics
// endpoint is disabled.
func NewHandler(logger *zap.Logger, db database.Database, svc *auth.Service, workflow *approval.Workflow, resolver *permission.Resolver, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:   logger.Named("handler"),
		db:       db,
		svc:      svc,
		workflow: workflow,
		resolver: resolver,
		metrics:  m,
	}
}

func (h *Handler) countLogin(method string, err error) {
	if h.metrics == nil {
		return
	}
	if err != nil {
		h.metrics.Login(method, "failure")
		return
	}
	h.metrics.Login(method, "success")
}
