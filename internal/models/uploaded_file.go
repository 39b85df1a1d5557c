package models

import "time"

// UploadedFile describes a file written to the public upload directory.
// Records are never mutated after creation.
type UploadedFile struct {
	OriginalName string    `json:"original_name" db:"original_name"`
	StoredName   string    `json:"stored_name" db:"stored_name"`
	SizeBytes    int64     `json:"size_bytes" db:"size_bytes"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	StoragePath  string    `json:"storage_path" db:"storage_path"`
	URL          string    `json:"url" db:"url"`
	Type         string    `json:"type" db:"upload_type"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
