// Package api is the HTTP client for the CSV upload pipeline API.
package api

import "time"

// UploadStatus is the server-side validation state of an upload.
type UploadStatus string

const (
	StatusPending          UploadStatus = "PENDING"
	StatusValidating       UploadStatus = "VALIDATING"
	StatusValidated        UploadStatus = "VALIDATED"
	StatusValidationFailed UploadStatus = "VALIDATION_FAILED"
)

// Label returns the human-readable status. Unknown statuses are returned verbatim.
func (s UploadStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusValidating:
		return "Validating"
	case StatusValidated:
		return "Validated"
	case StatusValidationFailed:
		return "Validation failed"
	default:
		return string(s)
	}
}

// UploadRecord is the server's representation of one submitted CSV file.
type UploadRecord struct {
	ID         int64        `json:"id"`
	Filename   string       `json:"filename"`
	Status     UploadStatus `json:"status"`
	StorageKey string       `json:"s3Key"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// errorBody is the error payload the API sends on failures.
type errorBody struct {
	Error string `json:"error"`
}

// ProgressFunc reports bytes of the request body sent so far.
type ProgressFunc func(sent, total int64)
