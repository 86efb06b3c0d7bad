package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// News categories
const (
	NewsCategoryNews         = "news"
	NewsCategoryNotification = "notification"
)

// News represents a news item or notification
type News struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Content     string             `bson:"content" json:"content"`
	Excerpt     string             `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Image       ImageRef           `bson:"image,omitempty" json:"image"`
	Category    string             `bson:"category" json:"category"`
	IsImportant bool               `bson:"isImportant" json:"isImportant"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Author      primitive.ObjectID `bson:"author" json:"author"`
	Views       int64              `bson:"views" json:"views"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	PublishedAt time.Time          `bson:"publishedAt" json:"publishedAt"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// MakeExcerpt derives a short plain-text excerpt from HTML content.
// Truncation counts characters, not bytes, so multi-byte content is never
// cut mid-rune.
func MakeExcerpt(content string) string {
	plain := htmlTagPattern.ReplaceAllString(content, "")
	runes := []rune(plain)
	if len(runes) > 150 {
		return string(runes[:150]) + "..."
	}
	return plain
}
