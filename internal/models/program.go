package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Program statuses
const (
	ProgramStatusActive    = "active"
	ProgramStatusCompleted = "completed"
	ProgramStatusUpcoming  = "upcoming"
)

// Program represents a department program or event
type Program struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	Year         int                `bson:"year" json:"year"`
	Department   string             `bson:"department" json:"department"`
	Duration     string             `bson:"duration" json:"duration"`
	Participants int                `bson:"participants" json:"participants"`
	Date         time.Time          `bson:"date" json:"date"`
	Image        ImageRef           `bson:"image,omitempty" json:"image"`
	Highlights   []string           `bson:"highlights,omitempty" json:"highlights,omitempty"`
	Status       string             `bson:"status" json:"status"`
	CreatedBy    primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
