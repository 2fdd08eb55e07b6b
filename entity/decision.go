package entity

// Outcome tells the caller of approve/deny what happened to the record.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"         // pending -> target, notification emitted
	OutcomeAlreadyHandled Outcome = "already_handled" // record already in the target state
	OutcomeConflict       Outcome = "conflict"        // record already in the other terminal state
)

// Decision is the result of an approve or deny call. Only OutcomeApplied
// changes state; the other outcomes return the record as stored.
type Decision struct {
	Registration *Registration `json:"registration"`
	Outcome      Outcome       `json:"outcome"`
}

func (d *Decision) Changed() bool {
	return d.Outcome == OutcomeApplied
}
