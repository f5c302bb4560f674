package pipeline

import (
	"github.com/abdullah0408/server/internal/clients/stageworker"
	"github.com/abdullah0408/server/internal/platform/httpx"
)

// Class is the retry decision for the result of one stage-worker call.
type Class int

const (
	ClassSuccess Class = iota
	// ClassPermanentNetwork means the stage worker could not be reached at
	// all. Retrying inside the same run will not help.
	ClassPermanentNetwork
	// ClassPrerequisiteMissing means the stage worker answered but the
	// upstream artifact the job depends on does not exist.
	ClassPrerequisiteMissing
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassPermanentNetwork:
		return "permanent_network"
	case ClassPrerequisiteMissing:
		return "prerequisite_missing"
	case ClassTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classify maps a Perform error to its retry class. Network failures are
// checked first: a transport error never carries a response code.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassSuccess
	case httpx.IsUnreachableError(err):
		return ClassPermanentNetwork
	case stageworker.IsPrerequisiteMissing(err):
		return ClassPrerequisiteMissing
	default:
		return ClassTransient
	}
}
