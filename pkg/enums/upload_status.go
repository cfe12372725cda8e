package enums

import "fmt"

// UploadStatus describes the lifecycle state of a track upload.
type UploadStatus string

const (
	UploadStatusUploading  UploadStatus = "uploading"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusPublished  UploadStatus = "published"
	UploadStatusPending    UploadStatus = "pending"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusUploading,
	UploadStatusProcessing,
	UploadStatusPublished,
	UploadStatusPending,
}

// String returns the literal string for the status.
func (s UploadStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOwnerToggleable reports whether the owning user may request this status
// directly. Only the published/pending pair is reachable by hand; uploading and
// processing are pipeline-managed.
func (s UploadStatus) IsOwnerToggleable() bool {
	return s == UploadStatusPublished || s == UploadStatusPending
}

// ParseUploadStatus converts raw input into an UploadStatus.
func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
