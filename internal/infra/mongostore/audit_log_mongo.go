package mongostore

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// audit entries live in their own collection and join the order transaction
type auditLogMongoRepository struct {
	sessionBound
	coll *mongo.Collection
}

func NewAuditLogMongoRepository(db *mongo.Database) repo.AuditLogRepository {
	return &auditLogMongoRepository{coll: db.Collection(auditLogsCollection)}
}

func (r *auditLogMongoRepository) Create(ctx context.Context, log model.AuditLog) error {
	_, err := r.coll.InsertOne(r.ctx(ctx), log)
	return err
}

func (r *auditLogMongoRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	ctx = r.ctx(ctx)

// build the filter from the set fields only
	filter := bson.M{}
	if f.ActorUserID != "" {
		filter["actorUserId"] = f.ActorUserID
	}
	if f.Action != nil {
		filter["action"] = string(*f.Action)
	}
	if f.ResourceType != nil {
		filter["resourceType"] = string(*f.ResourceType)
	}
	if f.ResourceID != "" {
		filter["resourceId"] = f.ResourceID
	}
	if f.CreatedFrom != nil || f.CreatedTo != nil {
		created := bson.M{}
		if f.CreatedFrom != nil {
			created["$gte"] = *f.CreatedFrom
		}
		if f.CreatedTo != nil {
			created["$lte"] = *f.CreatedTo
		}
		filter["createdAt"] = created
	}

// clamp paging
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

// newest first
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	logs := []model.AuditLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
