package mongostore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductMongoRepository is the catalogue in Mongo.
type ProductMongoRepository struct {
	coll *mongo.Collection
}

func NewProductMongoRepository(db *mongo.Database) *ProductMongoRepository {
	return &ProductMongoRepository{coll: db.Collection(productsCollection)}
}

func (r *ProductMongoRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	q.Page, q.Limit = normalizePage(q.Page, q.Limit, 20, 100)

// public listing shows active products only
	filter := bson.M{"isActive": true}
	if s := strings.TrimSpace(q.Q); s != "" {
// case insensitive substring match on the name
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return []model.Product{}, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return []model.Product{}, 0, err
	}
	defer cur.Close(ctx)

	products := []model.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return []model.Product{}, 0, err
	}
	return products, total, nil
}

func (r *ProductMongoRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductMongoRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

// one round trip for the whole cart
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var p model.Product
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, cur.Err()
}

func (r *ProductMongoRepository) Create(ctx context.Context, p *model.Product) error {
	_, err := r.coll.InsertOne(ctx, p)
	return err
}
