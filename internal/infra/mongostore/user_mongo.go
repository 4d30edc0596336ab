package mongostore

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type userMongoRepository struct {
	coll *mongo.Collection
}

func NewUserMongoRepository(db *mongo.Database) repo.UserRepository {
	return &userMongoRepository{coll: db.Collection(usersCollection)}
}

func (r *userMongoRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.coll.InsertOne(ctx, user)
	return err
}

func (r *userMongoRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *userMongoRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// findOne maps ErrNoDocuments to ErrUserNotFound.
func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repo.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update replaces the whole document.
func (r *userMongoRepository) Update(ctx context.Context, user *model.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrUserNotFound
	}
	return nil
}
