package publish

// Status is the PendingUpload status lattice from spec.md §3:
// Pending → Uploading → Uploaded → Publishing → Published, plus a terminal
// Failed(reason, retryable).
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusUploaded   Status = "uploaded"
	StatusPublishing Status = "publishing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// PendingUpload tracks one in-flight publish operation end to end.
type PendingUpload struct {
	LocalID          string
	LocalPath        string
	ThumbnailPath    string
	VideoHash        string
	ResultURLs       *UploadResult
	ThumbnailResult  *UploadResult
	Status           Status
	FailureReason    string
	Retryable        bool
	PublishedEventID string
}
