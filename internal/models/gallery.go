package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GalleryItem represents an image in the department gallery
type GalleryItem struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Image         string             `bson:"image" json:"image"`
	ImagePublicID string             `bson:"imagePublicId" json:"imagePublicId"`
	Category      string             `bson:"category" json:"category"`
	Year          int                `bson:"year" json:"year"`
	UploadedBy    primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	Tags          []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsFeatured    bool               `bson:"isFeatured" json:"isFeatured"`
	Views         int64              `bson:"views" json:"views"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
