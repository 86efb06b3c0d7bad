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

// NewsFilter narrows news listings
type NewsFilter struct {
	Category    string
	IsImportant *bool
	Search      string
	Page        int
	Limit       int
}

// Build converts the filter into a document store query. Listings only ever
// expose published items.
func (f NewsFilter) Build() bson.M {
	query := bson.M{"isPublished": true}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.IsImportant != nil {
		query["isImportant"] = *f.IsImportant
	}
	if f.Search != "" {
		query["$text"] = bson.M{"$search": f.Search}
	}
	return query
}

// newsRepository implements news data access
type newsRepository struct {
	coll *mongo.Collection
}

// NewNewsRepository creates a new news repository
func NewNewsRepository(db *mongo.Database) *newsRepository {
	return &newsRepository{coll: db.Collection(newsCollection)}
}

// Create inserts a news item
func (r *newsRepository) Create(ctx context.Context, news *models.News) error {
	now := time.Now()
	news.CreatedAt = now
	news.UpdatedAt = now
	if news.PublishedAt.IsZero() {
		news.PublishedAt = now
	}

	res, err := r.coll.InsertOne(ctx, news)
	if err != nil {
		return fmt.Errorf("failed to create news: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted news ID type %T", res.InsertedID)
	}
	news.ID = oid
	return nil
}

// GetByID retrieves a news item by ID. Returns (nil, nil) when not found.
func (r *newsRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.News, error) {
	var news models.News
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&news)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get news by id: %w", err)
	}
	return &news, nil
}

// List retrieves a page of published news plus the total match count
func (r *newsRepository) List(ctx context.Context, filter NewsFilter) ([]models.News, int64, error) {
	query := filter.Build()

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list news: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.News
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode news: %w", err)
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count news: %w", err)
	}

	return items, total, nil
}

// Related finds other published items in the same category
func (r *newsRepository) Related(ctx context.Context, category string, excludeID primitive.ObjectID, limit int) ([]models.News, error) {
	query := bson.M{
		"_id":         bson.M{"$ne": excludeID},
		"category":    category,
		"isPublished": true,
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find related news: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.News
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode related news: %w", err)
	}
	return items, nil
}

// Update applies a partial update to a news item
func (r *newsRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update news: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a news item
func (r *newsRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete news: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementViews bumps the view counter for a single-item read
func (r *newsRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment news views: %w", err)
	}
	return nil
}
