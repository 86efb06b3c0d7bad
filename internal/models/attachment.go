package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageRef references an image hosted in the remote media store.
// An empty PublicID means the image was never transferred to the remote store
// and there is nothing to clean up on replace or delete.
type ImageRef struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId" json:"publicId"`
}

// Attachment is a file attached to a project, hosted in the remote media store.
type Attachment struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	URL        string             `bson:"url" json:"url"`
	PublicID   string             `bson:"publicId" json:"publicId"`
	Type       string             `bson:"type" json:"type"`
	UploadedAt time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
