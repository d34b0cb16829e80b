package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	idgen "github.com/matchpoint-labs/padelcore/internal/platform/id"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

// Handler serves the competitive-core HTTP surface. Domain services are
// transaction participants, so each mutating handler opens one
// transaction and builds the service graph inside it.
type Handler struct {
	runner            usecase.TxRunner
	accounts          identity.AccountDirectory
	publisher         usecase.EventPublisher
	idGen             idgen.Generator
	backfill          *usecase.BackfillService
	leaderboard       *usecase.LeaderboardService
	claimWindowMonths int
	batchMaxWorkers   int
	batchDefaultLimit int
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	runner usecase.TxRunner,
	accounts identity.AccountDirectory,
	publisher usecase.EventPublisher,
	idGen idgen.Generator,
	backfill *usecase.BackfillService,
	leaderboard *usecase.LeaderboardService,
	claimWindowMonths int,
	batchMaxWorkers int,
	batchDefaultLimit int,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		runner:            runner,
		accounts:          accounts,
		publisher:         publisher,
		idGen:             idGen,
		backfill:          backfill,
		leaderboard:       leaderboard,
		claimWindowMonths: claimWindowMonths,
		batchMaxWorkers:   batchMaxWorkers,
		batchDefaultLimit: batchDefaultLimit,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) services(deps usecase.TxDeps) usecase.Services {
	return usecase.NewServices(deps, h.accounts, h.publisher, h.idGen, h.logger)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func pathValue(r *http.Request, name string) (string, error) {
	value := r.PathValue(name)
	if value == "" {
		return "", fmt.Errorf("%w: missing %s path parameter", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
