package match

import "context"

// Repository describes match persistence needs from use cases.
type Repository interface {
	// ListCompletedByEvent returns DONE matches with both pairings set,
	// ordered by actual end, planned end, last update, then id, so a
	// replay is deterministic.
	ListCompletedByEvent(ctx context.Context, organizationID, eventID string) ([]Match, error)
	CountCompletedByEvent(ctx context.Context, organizationID, eventID string) (int, error)
	// ListByDisputant returns completed matches whose embedded dispute
	// was raised by the given user.
	ListByDisputant(ctx context.Context, organizationID, userID string) ([]Match, error)
	RepointParticipants(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error
}
