package usecase

import (
	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	idgen "github.com/matchpoint-labs/padelcore/internal/platform/id"
	"github.com/matchpoint-labs/padelcore/internal/platform/logging"
)

// Services is the transaction-scoped service graph. Build one per
// transaction from inside TxRunner.InTx so every service shares the same
// unit of work.
type Services struct {
	Identity  *IdentityService
	Rating    *RatingService
	AntiFraud *AntiFraudService
	History   *HistoryService
}

func NewServices(
	deps TxDeps,
	accounts identity.AccountDirectory,
	publisher EventPublisher,
	idGen idgen.Generator,
	logger *logging.Logger,
) Services {
	ratingService := NewRatingService(deps, publisher, idGen, logger)
	return Services{
		Identity:  NewIdentityService(deps, accounts, publisher, idGen, logger),
		Rating:    ratingService,
		AntiFraud: NewAntiFraudService(deps, ratingService, publisher, logger),
		History:   NewHistoryService(deps, idGen, logger),
	}
}
