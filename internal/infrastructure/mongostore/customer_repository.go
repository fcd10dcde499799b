package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/merchportal/backend/internal/domain/catalog"
	"github.com/merchportal/backend/internal/domain/shared"
)

// DefaultCustomersCollection is the collection holding customer documents
const DefaultCustomersCollection = "customers"

// CustomerRepository implements catalog.CustomerRepository on the customers collection
type CustomerRepository struct {
	store      *Store
	collection *mongo.Collection
}

// NewCustomerRepository creates a repository on the given collection
func NewCustomerRepository(store *Store, collection string) *CustomerRepository {
	if collection == "" {
		collection = DefaultCustomersCollection
	}
	return &CustomerRepository{
		store:      store,
		collection: store.Database().Collection(collection),
	}
}

// FindByShopID finds the customer owning the given shop
func (r *CustomerRepository) FindByShopID(ctx context.Context, shopID string) (*catalog.Customer, error) {
	var doc customerDocument
	err := r.collection.FindOne(ctx, bson.M{"shops.shopId": shopID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find customer for shop %s: %w", shopID, err)
	}
	return doc.toDomain(), nil
}

// MarkProductsExported sets hasEC and ecGeneratedAt on the given products of the shop
func (r *CustomerRepository) MarkProductsExported(ctx context.Context, shopID string, productIDs []string, at time.Time) error {
	if len(productIDs) == 0 {
		return nil
	}

	filter := bson.M{"shops.shopId": shopID}
	update := bson.M{"$set": bson.M{
		"shops.$[shop].products.$[elem].hasEC":         true,
		"shops.$[shop].products.$[elem].ecGeneratedAt": at.UTC(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{
			bson.M{"shop.shopId": shopID},
			bson.M{"elem.productId": bson.M{"$in": productIDs}},
		},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to mark products exported for shop %s: %w", shopID, err)
	}
	if result.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ping checks the store is reachable
func (r *CustomerRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

var _ catalog.CustomerRepository = (*CustomerRepository)(nil)
