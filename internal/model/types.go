package model

import "time"

// FileInfo is a point-in-time snapshot of a single storage object.
// Listings produce fresh snapshots; renames and deletes are observed
// through subsequent listings, never by mutating an existing FileInfo.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// ImageRename pairs a source image object with the user-chosen base name
// it should carry inside the group folder.
type ImageRename struct {
	OriginalName string `json:"originalName"`
	NewName      string `json:"newName"`
}

// GroupRequest is the transient input to the group commit workflow. It is
// never persisted; its effect is expressed entirely as storage-object side
// effects.
type GroupRequest struct {
	ThreeMfName string        `json:"threeMfName"`
	Images      []ImageRename `json:"images"`
}
