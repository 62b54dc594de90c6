package model

import "time"

// Image is one registry entry. The hash is a base64-encoded MD5 of the
// blob's bytes and is unique within the registry: tasks share entries
// instead of storing duplicate blobs.
type Image struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	Key       string    `json:"-"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is one uploaded file from a multipart request.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
