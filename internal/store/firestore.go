package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

const defaultCollection = "predictions"

// Firestore stores one document per record, keyed by the record id.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// OpenFirestore connects with application default credentials, or to the
// emulator when FIRESTORE_EMULATOR_HOST is set.
func OpenFirestore(ctx context.Context, projectID, collection string) (*Firestore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id required")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("open firestore: %w", err)
	}
	return NewFirestore(client, collection), nil
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	if collection == "" {
		collection = defaultCollection
	}
	return &Firestore{client: client, collection: collection}
}

func (f *Firestore) Save(ctx context.Context, r prediction.Record) error {
	_, err := f.client.Collection(f.collection).Doc(r.ID).Create(ctx, r)
	if status.Code(err) == codes.AlreadyExists {
		return duplicateError(r.ID)
	}
	if err != nil {
		return saveError(err)
	}
	return nil
}

func (f *Firestore) ListAll(ctx context.Context) ([]prediction.Record, error) {
	docs, err := f.client.Collection(f.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, listError(err)
	}
	records := make([]prediction.Record, 0, len(docs))
	for _, doc := range docs {
		var r prediction.Record
		if err := doc.DataTo(&r); err != nil {
			return nil, listError(fmt.Errorf("decode %s: %w", doc.Ref.ID, err))
		}
		if err := checkClassification(r); err != nil {
			return nil, listError(err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (f *Firestore) Close() error { return f.client.Close() }
