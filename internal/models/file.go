package models

// FileRecord is an uploaded item (text, document, image or video) together
// with its inline content and the outcome of the latest duplicate-content
// check, if any.
type FileRecord struct {
	ID           string  `json:"id"`
	RemoteID     string  `json:"remoteId,omitempty"`
	OwnerID      string  `json:"ownerId"`
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	ContentType  string  `json:"contentType"`
	Content      string  `json:"content,omitempty"`
	ContentRef   string  `json:"contentRef,omitempty"`
	UploadDate   string  `json:"uploadDate,omitempty"`
	Timestamp    string  `json:"timestamp,omitempty"`
	LastModified string  `json:"lastModified,omitempty"`
	ScanID       string  `json:"scanId,omitempty"`
	ScanScore    float64 `json:"scanScore,omitempty"`
	ScanStatus   string  `json:"scanStatus,omitempty"`
}

// ShareRecord grants another user (by email) access to one of the owner's
// files. Ownership is a weak reference: deleting a user does not cascade.
type ShareRecord struct {
	ID           string `json:"id"`
	RemoteID     string `json:"remoteId,omitempty"`
	OwnerID      string `json:"ownerId"`
	FileID       string `json:"fileId"`
	Target       string `json:"target"`
	CreatedAt    string `json:"createdAt,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// ActivityEntry is one line of a user's local activity log.
type ActivityEntry struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}
