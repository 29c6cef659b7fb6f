package constants

// JobStatus is the canonical lifecycle state of a conversion job.
type JobStatus string

// Stable values (these exact strings appear in history rows and logs).
const (
	JobStatusQueued     JobStatus = "queued"     // waiting in the in-process queue
	JobStatusProcessing JobStatus = "processing" // owned by the worker
	JobStatusSucceeded  JobStatus = "succeeded"  // terminal success
	JobStatusFailed     JobStatus = "failed"     // terminal failure
)
