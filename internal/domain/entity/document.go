package entity

import "time"

// Document verification status constants
const (
	DocumentStatusPending  = "pending"
	DocumentStatusApproved = "approved"
	DocumentStatusRejected = "rejected"
)

// Document is the metadata of one version of an uploaded document.
// The file content itself is opaque to the engine.
type Document struct {
	ID                 int64      `json:"id"`
	ApplicationID      int64      `json:"application_id"`
	DocType            string     `json:"doc_type"`
	Version            int        `json:"version"`
	VerificationStatus string     `json:"verification_status"`
	IsCurrent          bool       `json:"is_current"`
	FileName           string     `json:"file_name"`
	FileSize           int64      `json:"file_size"`
	MimeType           string     `json:"mime_type"`
	Remarks            string     `json:"remarks,omitempty"`
	UploadedBy         string     `json:"uploaded_by"`
	VerifiedBy         string     `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsRejected returns true if the document failed verification
func (d *Document) IsRejected() bool {
	return d.VerificationStatus == DocumentStatusRejected
}

// FileMeta is the opaque file information supplied with an upload
type FileMeta struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}
