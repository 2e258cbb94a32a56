package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_LastModifiedFallbacks(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{
			name: "lastModified wins",
			doc: Document{
				"lastModified": "2024-02-01T00:00:00Z",
				"timestamp":    "2024-01-01T00:00:00Z",
			},
			want: "2024-02-01T00:00:00Z",
		},
		{
			name: "timestamp fallback",
			doc:  Document{"timestamp": "2024-01-01T00:00:00Z"},
			want: "2024-01-01T00:00:00Z",
		},
		{
			name: "uploadDate fallback",
			doc:  Document{"uploadDate": "2023-06-15T12:00:00Z"},
			want: "2023-06-15T12:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := time.Parse(time.RFC3339, tt.want)
			require.NoError(t, err)
			assert.True(t, tt.doc.LastModified().Equal(want))
		})
	}
}

func TestDocument_LastModifiedAbsent(t *testing.T) {
	assert.True(t, Document{}.LastModified().IsZero())
	assert.True(t, Document{"lastModified": "garbage"}.LastModified().IsZero())
	assert.True(t, Document{"lastModified": 42}.LastModified().IsZero())
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	f := FileRecord{ID: "f1", OwnerID: "u1", Name: "a.txt", Size: 12, ContentType: "text/plain"}
	doc, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "f1", doc.ID())
	assert.Equal(t, "u1", doc.OwnerID())

	var back FileRecord
	require.NoError(t, Decode(doc, &back))
	assert.Equal(t, f, back)
}

func TestUser_Admin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).Admin())
	assert.True(t, (&User{IsAdmin: true}).Admin())
	assert.False(t, (&User{Role: "user"}).Admin())
}

func TestPlan_Limits(t *testing.T) {
	assert.Equal(t, 3, PlanFree.Checks())
	assert.Equal(t, 100, PlanPremium.Checks())
	assert.False(t, PlanFree.AllowsContentType("video/mp4"))
	assert.True(t, PlanBusiness.AllowsContentType("video/mp4"))
	assert.True(t, PlanFree.AllowsContentType("text/plain"))
	assert.False(t, Plan("gold").Valid())
	assert.Equal(t, 3, Plan("gold").Checks())
}
