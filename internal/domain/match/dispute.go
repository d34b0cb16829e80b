package match

import "time"

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "OPEN"
	DisputeResolved DisputeStatus = "RESOLVED"
)

type DisputeResolution string

const (
	// ResolutionConfirmed upholds the original result: the dispute was
	// unfounded.
	ResolutionConfirmed DisputeResolution = "CONFIRMED"
	// ResolutionCorrected changes the result in the disputer's favor.
	ResolutionCorrected DisputeResolution = "CORRECTED"
	// ResolutionVoided discards the dispute entirely.
	ResolutionVoided DisputeResolution = "VOIDED"
)

// Dispute is the validated view of the dispute state embedded in a
// match's score payload. The raw payload stays an implementation detail
// behind ParseDispute.
type Dispute struct {
	Status     DisputeStatus
	DisputedBy string
	Reason     string
	OpenedAt   *time.Time
	Resolution DisputeResolution
	ResolvedBy string
	ResolvedAt *time.Time
}

func (d Dispute) Open() bool {
	return d.Status == DisputeOpen
}

// ResolvedAgainstDisputer reports whether the closed dispute counts as
// invalid for the disputing player: the result was confirmed, or the
// dispute was voided. A corrected result vindicates the disputer.
func (d Dispute) ResolvedAgainstDisputer() bool {
	if d.Status != DisputeResolved {
		return false
	}
	return d.Resolution == ResolutionConfirmed || d.Resolution == ResolutionVoided
}

// ParseDispute extracts dispute state from a score payload. The second
// return is false when the match carries no dispute.
func ParseDispute(score map[string]any) (Dispute, bool) {
	if score == nil {
		return Dispute{}, false
	}
	rawStatus, _ := score["disputeStatus"].(string)
	var status DisputeStatus
	switch DisputeStatus(trimUpper(rawStatus)) {
	case DisputeOpen:
		status = DisputeOpen
	case DisputeResolved:
		status = DisputeResolved
	default:
		return Dispute{}, false
	}

	d := Dispute{Status: status}
	d.DisputedBy, _ = score["disputedBy"].(string)
	d.Reason, _ = score["disputeReason"].(string)
	d.OpenedAt = payloadTime(score["disputedAt"])

	if status == DisputeResolved {
		rawResolution, _ := score["disputeResolutionStatus"].(string)
		switch DisputeResolution(trimUpper(rawResolution)) {
		case ResolutionConfirmed:
			d.Resolution = ResolutionConfirmed
		case ResolutionCorrected:
			d.Resolution = ResolutionCorrected
		case ResolutionVoided:
			d.Resolution = ResolutionVoided
		default:
			return Dispute{}, false
		}
		d.ResolvedBy, _ = score["disputeResolvedBy"].(string)
		d.ResolvedAt = payloadTime(score["disputeResolvedAt"])
	}

	return d, true
}
