package mongostore

import (
	"context"

	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type txReposMongo struct {
	orders    repo.OrderRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposMongo) Orders() repo.OrderRepository       { return r.orders }
func (r *txReposMongo) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

// TxManagerMongo runs fn inside a multi-document transaction. The server
// must be a replica set or sharded cluster.
type TxManagerMongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewTxManagerMongo(client *mongo.Client, db *mongo.Database) *TxManagerMongo {
	return &TxManagerMongo{client: client, db: db}
}

func (tm *TxManagerMongo) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	sess, err := tm.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		orders := NewOrderMongoRepository(tm.db)
		orders.sess = sc
		audit := &auditLogMongoRepository{sessionBound: sessionBound{sess: sc}, coll: tm.db.Collection(auditLogsCollection)}
		return nil, fn(&txReposMongo{orders: orders, auditLogs: audit})
	})
	return err
}

// EnsureIndexes creates the lookups the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "orderStage", Value: 1}}},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		auditLogsCollection: {
			{Keys: bson.D{{Key: "resourceId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
