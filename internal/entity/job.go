package entity

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparse/constants"
)

// Location identifies an object in the object store.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// BaseName returns the object's file name without directories or extension.
func (l Location) BaseName() string {
	base := path.Base(l.Key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// OriginalName returns the object's file name including the extension,
// as reported back to the caller in notifications.
func (l Location) OriginalName() string {
	return path.Base(l.Key)
}

// Job is one request to convert one document and deliver one outcome
// notification. A job is created by the submission boundary, owned by the
// queue until dequeued, and mutated exclusively by the worker afterwards.
type Job struct {
	ID           uuid.UUID
	Source       Location
	CallbackURL  string
	Variant      constants.Variant
	OutputFormat constants.OutputFormat
	Status       constants.JobStatus
	// ExternalJobID is the conversion service's identifier, empty until
	// submission to the service succeeds.
	ExternalJobID string
	// ErrorDetail is populated only in the failed state.
	ErrorDetail string
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

// OutputLocation derives the deterministic output location for a job: same
// bucket, processed/ sibling path, same base name, extension per the output
// format.
func (j *Job) OutputLocation() Location {
	return Location{
		Bucket: j.Source.Bucket,
		Key:    "processed/" + j.Source.BaseName() + "." + j.OutputFormat.Ext(),
	}
}
