package models

import "time"

const DefaultPhotographer = "Anonymous"

// Asset is one uploaded file as persisted in the assets table.
type Asset struct {
	ID           string
	Filename     string
	StorageKey   string
	Photographer string
	Description  string
	ContentType  string
	SizeBytes    int64
	UploadedAt   time.Time
}

// BlobAttributes are the descriptive fields attached to a stored object
// when no database is used.
type BlobAttributes struct {
	Filename     string
	Photographer string
	Description  string
}

// DisplayEntry is what the gallery renders for one asset.
type DisplayEntry struct {
	Filename     string    `json:"filename"`
	StorageKey   string    `json:"storageKey"`
	URL          string    `json:"url"`
	Photographer string    `json:"photographer"`
	Description  string    `json:"description"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
