package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"smplanner/marketing-app/internal/domain"
	"smplanner/marketing-app/internal/repository"
)

const clientCollectionName = "clients"

// mongoClientRepository implements repository.ClientRepository using MongoDB.
type mongoClientRepository struct {
	collection *mongo.Collection
}

// NewMongoClientRepository creates a new instance of mongoClientRepository.
// It expects a connected *mongo.Database instance.
func NewMongoClientRepository(db *mongo.Database) repository.ClientRepository {
	return &mongoClientRepository{
		collection: db.Collection(clientCollectionName),
	}
}

// Create inserts a new client into the database. The ID is generated here
// unless the caller supplied one; the replica pull path preserves IDs so a
// pulled record keeps its identity across devices.
func (r *mongoClientRepository) Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error) {
	if client.RecordName == "" || client.ConsultantID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("client record name and consultant ID are required")
	}

	if client.ID == primitive.NilObjectID {
		client.ID = primitive.NewObjectID()
	}

	result, err := r.collection.InsertOne(ctx, client)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a client by its MongoDB ObjectID.
func (r *mongoClientRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	var client domain.Client
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// GetByRecordName retrieves a client by its stable replica record name.
func (r *mongoClientRepository) GetByRecordName(ctx context.Context, recordName string) (*domain.Client, error) {
	var client domain.Client
	filter := bson.M{"recordName": recordName}

	err := r.collection.FindOne(ctx, filter).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// ListByConsultant retrieves all clients owned by the consultant, sorted by
// last name ascending.
func (r *mongoClientRepository) ListByConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]domain.Client, error) {
	filter := bson.M{"consultantId": consultantID}
	findOptions := options.Find().SetSort(bson.D{{Key: "lastName", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	clients := []domain.Client{}
	if err = cursor.All(ctx, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Update replaces the stored client document. The caller is expected to
// have refreshed lastModified already.
func (r *mongoClientRepository) Update(ctx context.Context, client *domain.Client) error {
	filter := bson.M{"_id": client.ID}

	result, err := r.collection.ReplaceOne(ctx, filter, client)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a client document. The embedded marketing plan goes with it.
func (r *mongoClientRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureClientIndexes creates necessary indexes for the clients collection.
// Call this once during application startup.
func EnsureClientIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recordName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Supports the sorted per-consultant listing.
			Keys: bson.D{{Key: "consultantId", Value: 1}, {Key: "lastName", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
