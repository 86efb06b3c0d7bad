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

// GalleryFilter narrows gallery listings
type GalleryFilter struct {
	Category string
	Year     int
	Tag      string
	Featured *bool
}

// Build converts the filter into a document store query
func (f GalleryFilter) Build() bson.M {
	query := bson.M{}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.Year != 0 {
		query["year"] = f.Year
	}
	if f.Tag != "" {
		query["tags"] = f.Tag
	}
	if f.Featured != nil {
		query["isFeatured"] = *f.Featured
	}
	return query
}

// galleryRepository implements gallery data access
type galleryRepository struct {
	coll *mongo.Collection
}

// NewGalleryRepository creates a new gallery repository
func NewGalleryRepository(db *mongo.Database) *galleryRepository {
	return &galleryRepository{coll: db.Collection(galleryCollection)}
}

// Create inserts a gallery item
func (r *galleryRepository) Create(ctx context.Context, item *models.GalleryItem) error {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to create gallery item: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted gallery item ID type %T", res.InsertedID)
	}
	item.ID = oid
	return nil
}

// GetByID retrieves a gallery item by ID. Returns (nil, nil) when not found.
func (r *galleryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.GalleryItem, error) {
	var item models.GalleryItem
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery item by id: %w", err)
	}
	return &item, nil
}

// List retrieves gallery items matching the filter, newest first
func (r *galleryRepository) List(ctx context.Context, filter GalleryFilter) ([]models.GalleryItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter.Build(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.GalleryItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode gallery items: %w", err)
	}
	return items, nil
}

// Categories returns the distinct set of categories in use
func (r *galleryRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery categories: %w", err)
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

// Update applies a partial update to a gallery item
func (r *galleryRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update gallery item: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a gallery item
func (r *galleryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete gallery item: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementViews bumps the view counter for a single-item read
func (r *galleryRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment gallery views: %w", err)
	}
	return nil
}
