package jobs

import (
	"time"

	"github.com/google/uuid"
)

type Entity string

const (
	EntityCourse  Entity = "course"
	EntityChapter Entity = "chapter"
)

// Job is the snapshot a claim returns. ClaimedFrom is the status the row held
// right before it was moved to the working status. ClaimID is written to the
// row by the claim; only the holder of the current ClaimID may move the row out
// of the working status.
type Job struct {
	ID          uuid.UUID `json:"id"`
	ClaimID     uuid.UUID `json:"claim_id"`
	Entity      Entity    `json:"entity"`
	ClaimedFrom string    `json:"claimed_from"`
	CreatedAt   time.Time `json:"created_at"`
	ClaimedAt   time.Time `json:"claimed_at"`
}
