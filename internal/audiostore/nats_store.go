// Package audiostore provides a NATS JetStream object-store implementation
// of the narration audio store.
//
// Generated narration audio is keyed "<userID>/<narrationID>.wav", which
// makes the per-user purge a prefix sweep over the bucket.
package audiostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Store implements core.AudioStore on a JetStream object-store bucket.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

// New creates a Store bound to the named bucket, creating it when absent.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	// Use a "create-first" approach.
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Narration audio for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})

	// If the bucket already exists, bind to it.
	if err != nil {
		if errors.Is(err, jetstream.ErrBucketExists) {
			store, err = jetstreamContext.ObjectStore(bucketName)
			if err != nil {
				return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
			}
		} else {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}
	}

	return &Store{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves one audio object.
func (s *Store) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := s.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, s.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload saves one audio object.
func (s *Store) Upload(_ context.Context, key string, data []byte) error {
	reader := bytes.NewReader(data)

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, reader)
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, s.bucket, err)
	}

	return nil
}

// DeleteUserAudio removes every object stored under the user's prefix. An
// empty bucket is not an error: the purge is a best-effort sweep.
func (s *Store) DeleteUserAudio(_ context.Context, userID string) error {
	objects, err := s.store.List()
	if err != nil {
		if errors.Is(err, nats.ErrNoObjectsFound) {
			return nil
		}

		return fmt.Errorf("failed to list bucket '%s' for user purge: %w", s.bucket, err)
	}

	prefix := userID + "/"

	for _, object := range objects {
		if object == nil || !strings.HasPrefix(object.Name, prefix) {
			continue
		}

		deleteErr := s.store.Delete(object.Name)
		if deleteErr != nil {
			return fmt.Errorf("failed to delete object '%s' from bucket '%s': %w",
				object.Name, s.bucket, deleteErr)
		}
	}

	return nil
}
