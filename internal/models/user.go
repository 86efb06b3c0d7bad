package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of account roles. Stored as a string in the users
// collection; always go through ParseRole when reading external input so an
// unknown role can never slip through an authorization check.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEditor    Role = "editor"
	RoleFaculty   Role = "faculty"
	RoleModerator Role = "moderator"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleFaculty, RoleModerator:
		return Role(s), true
	default:
		return "", false
	}
}

// Allowed-role sets per mutating operation. Routers consult these tables
// instead of spelling role lists inline at each route.
var (
	NewsEditors     = []Role{RoleAdmin, RoleEditor}
	ProgramEditors  = []Role{RoleAdmin}
	GalleryEditors  = []Role{RoleAdmin}
	ProjectEditors  = []Role{RoleAdmin, RoleFaculty}
	ProjectDeleters = []Role{RoleAdmin}
)

// User represents an account in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"` // Never serialize password hash
	Role         Role               `bson:"role" json:"role"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CanModify reports whether the actor may mutate a resource owned by ownerID.
// Only the owner or an admin may update or delete an owned resource.
func CanModify(actor *User, ownerID primitive.ObjectID) bool {
	if actor == nil {
		return false
	}
	return actor.ID == ownerID || actor.Role == RoleAdmin
}
