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

// ProgramFilter narrows program listings
type ProgramFilter struct {
	Year       int
	Department string
	Status     string
}

// Build converts the filter into a document store query
func (f ProgramFilter) Build() bson.M {
	query := bson.M{}
	if f.Year != 0 {
		query["year"] = f.Year
	}
	if f.Department != "" {
		query["department"] = f.Department
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	return query
}

// ProgramStats aggregates program counts
type ProgramStats struct {
	TotalPrograms     int64             `json:"totalPrograms"`
	TotalParticipants int64             `json:"totalParticipants"`
	ByYear            []YearCount       `json:"byYear"`
	ByDepartment      []DepartmentCount `json:"byDepartment"`
}

// programRepository implements program data access
type programRepository struct {
	coll *mongo.Collection
}

// NewProgramRepository creates a new program repository
func NewProgramRepository(db *mongo.Database) *programRepository {
	return &programRepository{coll: db.Collection(programsCollection)}
}

// Create inserts a program
func (r *programRepository) Create(ctx context.Context, program *models.Program) error {
	now := time.Now()
	program.CreatedAt = now
	program.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, program)
	if err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted program ID type %T", res.InsertedID)
	}
	program.ID = oid
	return nil
}

// GetByID retrieves a program by ID. Returns (nil, nil) when not found.
func (r *programRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error) {
	var program models.Program
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&program)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program by id: %w", err)
	}
	return &program, nil
}

// List retrieves programs matching the filter, newest year first
func (r *programRepository) List(ctx context.Context, filter ProgramFilter) ([]models.Program, error) {
	opts := options.Find().SetSort(bson.D{{Key: "year", Value: -1}, {Key: "date", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter.Build(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer cursor.Close(ctx)

	var programs []models.Program
	if err := cursor.All(ctx, &programs); err != nil {
		return nil, fmt.Errorf("failed to decode programs: %w", err)
	}
	return programs, nil
}

// Update applies a partial update to a program
func (r *programRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a program
func (r *programRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete program: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Stats aggregates totals plus per-year and per-department counts
func (r *programRepository) Stats(ctx context.Context) (*ProgramStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalPrograms", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalParticipants", Value: bson.D{{Key: "$sum", Value: "$participants"}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate program stats: %w", err)
	}
	defer cursor.Close(ctx)

	var totals []struct {
		TotalPrograms     int64 `bson:"totalPrograms"`
		TotalParticipants int64 `bson:"totalParticipants"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, fmt.Errorf("failed to decode program stats: %w", err)
	}

	stats := &ProgramStats{}
	if len(totals) > 0 {
		stats.TotalPrograms = totals[0].TotalPrograms
		stats.TotalParticipants = totals[0].TotalParticipants
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

func (r *programRepository) countByYear(ctx context.Context) ([]YearCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$year"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate programs by year: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []YearCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode programs by year: %w", err)
	}
	return counts, nil
}

func (r *programRepository) countByDepartment(ctx context.Context) ([]DepartmentCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$department"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate programs by department: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []DepartmentCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode programs by department: %w", err)
	}
	return counts, nil
}
