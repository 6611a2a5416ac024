package domain

import "github.com/google/uuid"

// Bulk failure reasons recorded per item in a BulkMutationResult.
const (
	BulkReasonNotOwned = "not found or not owned by caller"
)

// BulkMutationResult reports the itemized outcome of a bulk mutation.
// A mixed-outcome batch is never collapsed into a single boolean: every
// requested id lands in exactly one of Succeeded or Failed, and each failure
// carries its reason.
type BulkMutationResult struct {
	Succeeded    []uuid.UUID          `json:"succeeded"`
	Failed       []uuid.UUID          `json:"failed"`
	FailReasons  map[uuid.UUID]string `json:"fail_reasons,omitempty"`
	SuccessCount int                  `json:"success_count"`
	FailureCount int                  `json:"failure_count"`
}

// NewBulkMutationResult creates an empty result ready to accumulate outcomes.
func NewBulkMutationResult() *BulkMutationResult {
	return &BulkMutationResult{
		Succeeded:   []uuid.UUID{},
		Failed:      []uuid.UUID{},
		FailReasons: map[uuid.UUID]string{},
	}
}

// AddSuccess records a successfully mutated id.
func (r *BulkMutationResult) AddSuccess(id uuid.UUID) {
	r.Succeeded = append(r.Succeeded, id)
	r.SuccessCount++
}

// AddFailure records a failed id with its reason.
func (r *BulkMutationResult) AddFailure(id uuid.UUID, reason string) {
	r.Failed = append(r.Failed, id)
	r.FailReasons[id] = reason
	r.FailureCount++
}
