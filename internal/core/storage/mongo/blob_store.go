// Package mongo implements the backing store contract on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blobmux/internal/core/storage/types"
)

type blobDoc struct {
	Key       string    `bson:"_id"`
	Content   []byte    `bson:"content"`
	Checksum  string    `bson:"checksum"`
	CreatedAt time.Time `bson:"created_at"`
}

type blobStore struct {
	coll *mongo.Collection
}

// NewBlobStore creates a MongoDB-backed BackingStore over the given
// collection.
func NewBlobStore(db *mongo.Database, collectionName string) types.BackingStore {
	if collectionName == "" {
		collectionName = "blobs"
	}
	return &blobStore{
		coll: db.Collection(collectionName),
	}
}

func (s *blobStore) Get(ctx context.Context, key string) (*types.BlobValue, error) {
	var doc blobDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrBlobNotFound
		}
		return nil, err
	}
	return &types.BlobValue{
		Content:   doc.Content,
		Checksum:  doc.Checksum,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *blobStore) Put(ctx context.Context, key string, value types.BlobValue) error {
	_, err := s.coll.InsertOne(ctx, toDoc(key, value))
	if mongo.IsDuplicateKeyError(err) {
		// Write-once content addressing: re-inserting the same content
		// is fine, differing content under the same key is not.
		existing, gerr := s.Get(ctx, key)
		if gerr != nil {
			return gerr
		}
		if existing.Checksum == value.Checksum {
			return nil
		}
		return fmt.Errorf("key %q already holds different content", key)
	}
	return err
}

func (s *blobStore) PutExplicit(ctx context.Context, key string, value types.BlobValue, policy types.OverwritePolicy) (types.OverwriteStatus, error) {
	var existing blobDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key},
		options.FindOne().SetProjection(bson.M{"checksum": 1})).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		if _, ierr := s.coll.InsertOne(ctx, toDoc(key, value)); ierr != nil {
			if mongo.IsDuplicateKeyError(ierr) {
				// Lost a race with another writer; content addressing
				// means the winner wrote the same bytes.
				return types.StatusIdentical, nil
			}
			return types.StatusSkipped, ierr
		}
		return types.StatusWritten, nil
	case err != nil:
		return types.StatusSkipped, err
	}

	if existing.Checksum == value.Checksum {
		return types.StatusIdentical, nil
	}
	if policy == types.OverwriteIfMissing {
		return types.StatusSkipped, nil
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": key}, toDoc(key, value),
		options.Replace().SetUpsert(true))
	if err != nil {
		return types.StatusSkipped, err
	}
	return types.StatusReplaced, nil
}

func (s *blobStore) Contains(ctx context.Context, key string) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": key},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *blobStore) Close(ctx context.Context) error {
	// Connection lifecycle belongs to the Provider.
	return nil
}

func toDoc(key string, value types.BlobValue) blobDoc {
	return blobDoc{
		Key:       key,
		Content:   value.Content,
		Checksum:  value.Checksum,
		CreatedAt: value.CreatedAt,
	}
}
