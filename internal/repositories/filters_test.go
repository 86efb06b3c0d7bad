package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewsFilterBuild(t *testing.T) {
	important := true

	tests := []struct {
		name   string
		filter NewsFilter
		want   bson.M
	}{
		{
			name:   "empty filter still hides unpublished",
			filter: NewsFilter{},
			want:   bson.M{"isPublished": true},
		},
		{
			name:   "category",
			filter: NewsFilter{Category: "notification"},
			want:   bson.M{"isPublished": true, "category": "notification"},
		},
		{
			name:   "importance flag",
			filter: NewsFilter{IsImportant: &important},
			want:   bson.M{"isPublished": true, "isImportant": true},
		},
		{
			name:   "text search",
			filter: NewsFilter{Search: "exam schedule"},
			want:   bson.M{"isPublished": true, "$text": bson.M{"$search": "exam schedule"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Build())
		})
	}
}

func TestGalleryFilterBuild(t *testing.T) {
	featured := false

	tests := []struct {
		name   string
		filter GalleryFilter
		want   bson.M
	}{
		{
			name:   "empty",
			filter: GalleryFilter{},
			want:   bson.M{},
		},
		{
			name:   "all fields",
			filter: GalleryFilter{Category: "events", Year: 2026, Tag: "sports", Featured: &featured},
			want:   bson.M{"category": "events", "year": 2026, "tags": "sports", "isFeatured": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Build())
		})
	}
}

func TestProjectFilterBuild(t *testing.T) {
	assert.Equal(t, bson.M{}, ProjectFilter{}.Build())
	assert.Equal(t,
		bson.M{"status": "completed", "department": "cs", "year": 2025},
		ProjectFilter{Status: "completed", Department: "cs", Year: 2025}.Build(),
	)
}

func TestProgramFilterBuild(t *testing.T) {
	assert.Equal(t, bson.M{}, ProgramFilter{}.Build())
	assert.Equal(t,
		bson.M{"year": 2026, "department": "physics", "status": "active"},
		ProgramFilter{Year: 2026, Department: "physics", Status: "active"}.Build(),
	)
}
