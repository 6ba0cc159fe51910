package types

// StopStatus classifies the outcome of a stop-and-retrieve cycle.
type StopStatus string

const (
	// StopFullSuccess: every file downloaded, uploaded, and locally removed.
	StopFullSuccess StopStatus = "full_success"
	// StopPartialSuccess: uploads succeeded but local cleanup was incomplete.
	StopPartialSuccess StopStatus = "partial_success"
	// StopUploadFailure: upload failed for at least one file; all local
	// copies are retained.
	StopUploadFailure StopStatus = "upload_failure"
	// StopDownloadFailure: devices returned recording tokens but no file
	// could be retrieved.
	StopDownloadFailure StopStatus = "download_failure"
)

// StopOutcome is the tiered result of Orchestrator.Stop.
type StopOutcome struct {
	// Status is the outcome tier.
	Status StopStatus
	// FileIDs is the device→token map returned by the stop broadcast.
	FileIDs map[string]string
	// Downloaded lists local paths retrieved from devices.
	Downloaded []string
	// Uploaded lists local paths successfully uploaded.
	Uploaded []string
	// FailedUploads lists local paths whose upload failed; these are
	// retained on disk.
	FailedUploads []string
	// FailedCleanup lists uploaded paths whose local deletion failed.
	FailedCleanup []string
	// SessionFolder is the remote folder the batch was uploaded under.
	SessionFolder string
	// Message is a human-readable summary.
	Message string
}
