package mongostore

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection    = "orders"
	productsCollection  = "products"
	usersCollection     = "users"
	auditLogsCollection = "audit_logs"
)

// sessionBound lets repos built inside WithTransaction ignore the caller ctx
// and run on the session context instead.
type sessionBound struct {
	sess mongo.SessionContext
}

func (s sessionBound) ctx(ctx context.Context) context.Context {
	if s.sess != nil {
		return s.sess
	}
	return ctx
}

// OrderMongoRepository stores orders as one document each, items and history embedded.
type OrderMongoRepository struct {
	sessionBound
	coll *mongo.Collection
}

func NewOrderMongoRepository(db *mongo.Database) *OrderMongoRepository {
	return &OrderMongoRepository{coll: db.Collection(ordersCollection)}
}

func (r *OrderMongoRepository) Create(ctx context.Context, order *model.Order) error {
	_, err := r.coll.InsertOne(r.ctx(ctx), order)
	return err
}

// FindByID returns ErrNotFound for an unknown id.
func (r *OrderMongoRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := r.coll.FindOne(r.ctx(ctx), bson.M{"_id": orderID}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	normalizeOrder(&o)
	return o, nil
}

func (r *OrderMongoRepository) ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error) {
	page, limit = normalizePage(page, limit, 20, 100)
	return r.list(r.ctx(ctx), bson.M{"userId": userID}, page, limit)
}

func (r *OrderMongoRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit, 50, 100)

// only set fields narrow the search
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Stage != "" {
		filter["orderStage"] = f.Stage
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.From != nil || f.To != nil {
		created := bson.M{}
		if f.From != nil {
			created["$gte"] = *f.From
		}
		if f.To != nil {
			created["$lte"] = *f.To
		}
		filter["createdAt"] = created
	}
	return r.list(r.ctx(ctx), filter, f.Page, f.Limit)
}

func (r *OrderMongoRepository) list(ctx context.Context, filter bson.M, page, limit int) ([]model.Order, int64, error) {
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return []model.Order{}, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return []model.Order{}, 0, err
	}
	defer cur.Close(ctx)

	items := []model.Order{}
	if err := cur.All(ctx, &items); err != nil {
		return []model.Order{}, 0, err
	}
	for i := range items {
		normalizeOrder(&items[i])
	}
	return items, total, nil
}

func (r *OrderMongoRepository) Update(ctx context.Context, order *model.Order) error {
	ctx = r.ctx(ctx)
	expected := order.Version

	next := *order
	next.Version = expected + 1
// compare and swap on version
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": order.ID, "version": expected}, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
// missing order or stale version
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": order.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return repo.ErrNotFound
		}
		return repo.ErrConflict
	}

	order.Version = next.Version
	return nil
}

// normalizeOrder turns null arrays into empty ones so JSON shows [].
func normalizeOrder(o *model.Order) {
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	if o.StageHistory == nil {
		o.StageHistory = []model.StageHistoryEntry{}
	}
}

func normalizePage(page, limit, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return page, limit
}
