package entity

// Notification is the outbound webhook payload. Exactly one is delivered per
// job, success or error.
type Notification struct {
	Status string `json:"status"` // "success" or "error"
	// OutputLocation is the public URL of the written result. Success only.
	OutputLocation string `json:"csv_url,omitempty"`
	// Message carries the failure detail. Error only.
	Message      string `json:"message,omitempty"`
	OriginalName string `json:"original_filename"`
	// ExternalJobID is included only if one had been obtained before the
	// terminal state.
	ExternalJobID string `json:"document_id,omitempty"`
}

// SuccessNotification builds the payload for a completed job.
func SuccessNotification(outputURL, originalName, externalJobID string) Notification {
	return Notification{
		Status:         "success",
		OutputLocation: outputURL,
		OriginalName:   originalName,
		ExternalJobID:  externalJobID,
	}
}

// ErrorNotification builds the payload for a failed job.
func ErrorNotification(message, originalName, externalJobID string) Notification {
	return Notification{
		Status:        "error",
		Message:       message,
		OriginalName:  originalName,
		ExternalJobID: externalJobID,
	}
}
