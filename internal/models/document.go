// Package models defines the record types shared by the local store, the
// remote document client and the domain repositories.
package models

import (
	"encoding/json"
	"time"
)

// Collection names used by the dual-backend stores.
const (
	CollectionUsers  = "users"
	CollectionFiles  = "files"
	CollectionShares = "shares"
)

// Document is a schemaless record as stored in a collection. Field access
// helpers tolerate missing or mistyped values and return zero values, since
// locally cached data may predate the current schema.
type Document map[string]any

// ID returns the client-generated record identifier, or "" when absent.
func (d Document) ID() string { return d.stringField("id") }

// RemoteID returns the identifier assigned by the remote store on first
// insert, or "" when the record never reached the remote side.
func (d Document) RemoteID() string { return d.stringField("remoteId") }

// OwnerID returns the id of the owning user.
func (d Document) OwnerID() string { return d.stringField("ownerId") }

// SetID sets the client-generated identifier.
func (d Document) SetID(id string) { d["id"] = id }

// SetRemoteID records the identifier the remote store assigned.
func (d Document) SetRemoteID(id string) { d["remoteId"] = id }

// LastModified returns the record's modification instant, falling back to
// the timestamp and uploadDate fields and finally to the zero time. This is
// the sole tiebreaker used during reconciliation.
func (d Document) LastModified() time.Time {
	for _, field := range []string{"lastModified", "timestamp", "uploadDate"} {
		if raw := d.stringField(field); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (d Document) stringField(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// Encode converts a typed record into a Document via its JSON form.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Decode converts a Document back into a typed record via its JSON form.
func Decode(d Document, v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
