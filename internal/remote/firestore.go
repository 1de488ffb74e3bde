package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores one Firestore document per entity. Its snapshot
// listeners already deliver the full result set of a collection, and the
// client library keeps its own offline cache and write retries.
type Firestore struct {
	client         *firestore.Client
	pingCollection string
	pingDoc        string
	resubscribe    time.Duration
}

func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	return &Firestore{
		client:         client,
		pingCollection: "settings",
		pingDoc:        "app",
		resubscribe:    5 * time.Second,
	}, nil
}

func (f *Firestore) Subscribe(ctx context.Context, collection string, l Listener) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		for ctx.Err() == nil {
			err := f.listen(ctx, collection, l)
			if ctx.Err() != nil {
				return
			}
			l.fail(firestoreErr("subscribe", collection, "", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.resubscribe):
			}
		}
	}()
	return cancel, nil
}

// listen runs one snapshot listener until it fails or ctx ends.
func (f *Firestore) listen(ctx context.Context, collection string, l Listener) error {
	it := f.client.Collection(collection).Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			return err
		}
		refs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		docs := make([]Document, 0, len(refs))
		for _, ref := range refs {
			data, err := json.Marshal(ref.Data())
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", collection, ref.Ref.ID, err)
			}
			docs = append(docs, Document{ID: ref.Ref.ID, Data: data})
		}
		l.change(docs)
	}
}

func (f *Firestore) Upsert(ctx context.Context, collection, id string, data json.RawMessage) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return &TransportError{Op: "upsert", Collection: collection, ID: id, Err: err}
	}
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, fields)
	return firestoreErr("upsert", collection, id, err)
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return firestoreErr("delete", collection, id, err)
}

func (f *Firestore) Ping(ctx context.Context) error {
	_, err := f.client.Collection(f.pingCollection).Doc(f.pingDoc).Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return firestoreErr("ping", f.pingCollection, f.pingDoc, err)
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func firestoreErr(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return &TransportError{Op: op, Collection: collection, ID: id, Err: fmt.Errorf("%w: %v", ErrPermissionDenied, err)}
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal, codes.Unknown:
		return &TransportError{Op: op, Collection: collection, ID: id, Retryable: true, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return &TransportError{Op: op, Collection: collection, ID: id, Err: err}
}
