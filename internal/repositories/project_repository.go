package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/univdept/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProjectFilter narrows project listings
type ProjectFilter struct {
	Status     string
	Department string
	Year       int
}

// Build converts the filter into a document store query
func (f ProjectFilter) Build() bson.M {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Department != "" {
		query["department"] = f.Department
	}
	if f.Year != 0 {
		query["year"] = f.Year
	}
	return query
}

// ProjectStats aggregates project counts and views
type ProjectStats struct {
	TotalProjects int64             `bson:"totalProjects" json:"totalProjects"`
	TotalViews    int64             `bson:"totalViews" json:"totalViews"`
	ByStatus      []StatusCount     `bson:"byStatus" json:"byStatus"`
	ByYear        []YearCount       `bson:"-" json:"byYear"`
	ByDepartment  []DepartmentCount `bson:"-" json:"byDepartment"`
}

// StatusCount is one status bucket of the project stats aggregation
type StatusCount struct {
	Status string `bson:"status" json:"status"`
	Count  int64  `bson:"count" json:"count"`
}

// YearCount is one year bucket of a stats aggregation
type YearCount struct {
	Year  int   `bson:"_id" json:"year"`
	Count int64 `bson:"count" json:"count"`
}

// DepartmentCount is one department bucket of a stats aggregation
type DepartmentCount struct {
	Department string `bson:"_id" json:"department"`
	Count      int64  `bson:"count" json:"count"`
}

// projectRepository implements project data access
type projectRepository struct {
	coll *mongo.Collection
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *mongo.Database) *projectRepository {
	return &projectRepository{coll: db.Collection(projectsCollection)}
}

// Create inserts a project
func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.Attachments == nil {
		project.Attachments = []models.Attachment{}
	}

	res, err := r.coll.InsertOne(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted project ID type %T", res.InsertedID)
	}
	project.ID = oid
	return nil
}

// GetByID retrieves a project by ID. Returns (nil, nil) when not found.
func (r *projectRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project by id: %w", err)
	}
	return &project, nil
}

// List retrieves projects matching the filter, newest first
func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter.Build(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

// Featured retrieves up to limit featured projects, newest first
func (r *projectRepository) Featured(ctx context.Context, limit int) ([]models.Project, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"isFeatured": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured projects: %w", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode featured projects: %w", err)
	}
	return projects, nil
}

// Update applies a partial update to a project
func (r *projectRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// PushAttachments appends attachments to a project's attachment list
func (r *projectRepository) PushAttachments(ctx context.Context, id primitive.ObjectID, attachments []models.Attachment) error {
	update := bson.M{
		"$push":        bson.M{"attachments": bson.M{"$each": attachments}},
		"$currentDate": bson.M{"updatedAt": true},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to push project attachments: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// PullAttachment removes one attachment from a project's attachment list
func (r *projectRepository) PullAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) error {
	update := bson.M{
		"$pull":        bson.M{"attachments": bson.M{"_id": attachmentID}},
		"$currentDate": bson.M{"updatedAt": true},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to pull project attachment: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a project
func (r *projectRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementViews bumps the view counter for a single-item read
func (r *projectRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment project views: %w", err)
	}
	return nil
}

// Stats aggregates totals, per-status, per-year and per-department counts
func (r *projectRepository) Stats(ctx context.Context) (*ProjectStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalViews", Value: bson.D{{Key: "$sum", Value: "$views"}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalProjects", Value: bson.D{{Key: "$sum", Value: "$count"}}},
			{Key: "totalViews", Value: bson.D{{Key: "$sum", Value: "$totalViews"}}},
			{Key: "byStatus", Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "status", Value: "$_id"},
				{Key: "count", Value: "$count"},
			}}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate project stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []ProjectStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode project stats: %w", err)
	}

	stats := &ProjectStats{}
	if len(results) > 0 {
		*stats = results[0]
	}

	stats.ByYear, err = r.countByYear(ctx)
	if err != nil {
		return nil, err
	}

	stats.ByDepartment, err = r.countByDepartment(ctx)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *projectRepository) countByYear(ctx context.Context) ([]YearCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$year"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate projects by year: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []YearCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode projects by year: %w", err)
	}
	return counts, nil
}

func (r *projectRepository) countByDepartment(ctx context.Context) ([]DepartmentCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$department"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate projects by department: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []DepartmentCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode projects by department: %w", err)
	}
	return counts, nil
}
