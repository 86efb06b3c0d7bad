package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses
const (
	ProjectStatusOngoing   = "ongoing"
	ProjectStatusCompleted = "completed"
	ProjectStatusUpcoming  = "upcoming"
)

// Project represents a department project with an image and file attachments
type Project struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	Abstract      string               `bson:"abstract,omitempty" json:"abstract,omitempty"`
	Image         string               `bson:"image" json:"image"`
	ImagePublicID string               `bson:"imagePublicId" json:"imagePublicId"`
	Department    string               `bson:"department" json:"department"`
	Year          int                  `bson:"year" json:"year"`
	Status        string               `bson:"status" json:"status"`
	Supervisor    primitive.ObjectID   `bson:"supervisor,omitempty" json:"supervisor,omitempty"`
	TeamMembers   []primitive.ObjectID `bson:"teamMembers,omitempty" json:"teamMembers,omitempty"`
	Attachments   []Attachment         `bson:"attachments" json:"attachments"`
	Tags          []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	IsFeatured    bool                 `bson:"isFeatured" json:"isFeatured"`
	Views         int64                `bson:"views" json:"views"`
	CreatedBy     primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// RemotePublicIDs collects every remote media store reference held by the
// project: the main image plus all attachments. Used for delete cleanup.
func (p *Project) RemotePublicIDs() []string {
	var ids []string
	if p.ImagePublicID != "" {
		ids = append(ids, p.ImagePublicID)
	}
	for _, a := range p.Attachments {
		if a.PublicID != "" {
			ids = append(ids, a.PublicID)
		}
	}
	return ids
}
