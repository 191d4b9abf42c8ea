package store

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
)

// KVStore persists a scalar map in a NATS JetStream key-value bucket.
// Useful when the router runs next to a NATS deployment and state should
// follow the platform rather than the local filesystem.
type KVStore struct {
	bucket jetstream.KeyValue
	key    string
}

// NewKVStore connects to NATS at url and creates (or opens) the bucket.
// Each store instance persists one map under one key.
func NewKVStore(ctx context.Context, url, bucketName, key string) (*KVStore, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "NewKVStore", "connect to NATS")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errors.WrapFatal(err, "KVStore", "NewKVStore", "create JetStream context")
	}

	bucket, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: "control surface router persisted state",
		History:     1,
	})
	if err != nil {
		bucket, err = js.KeyValue(ctx, bucketName)
		if err != nil {
			return nil, errors.WrapTransient(err, "KVStore", "NewKVStore", "open KV bucket")
		}
	}

	return &KVStore{bucket: bucket, key: key}, nil
}

// NewKVStoreFromBucket wraps an existing bucket; used by tests and by
// embedders that manage their own NATS connection.
func NewKVStoreFromBucket(bucket jetstream.KeyValue, key string) *KVStore {
	return &KVStore{bucket: bucket, key: key}
}

// Load reads the persisted map. A missing key is not an error: it returns
// an empty map, matching first-run behavior.
func (ks *KVStore) Load(ctx context.Context) (map[string]int64, error) {
	entry, err := ks.bucket.Get(ctx, ks.key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return map[string]int64{}, nil
		}
		return nil, errors.WrapTransient(err, "KVStore", "Load", "get KV entry")
	}

	values := make(map[string]int64)
	if err := json.Unmarshal(entry.Value(), &values); err != nil {
		return nil, errors.WrapInvalid(err, "KVStore", "Load", "decode KV entry")
	}
	return values, nil
}

// Save replaces the persisted map
func (ks *KVStore) Save(ctx context.Context, values map[string]int64) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.WrapInvalid(err, "KVStore", "Save", "encode state")
	}
	if _, err := ks.bucket.Put(ctx, ks.key, data); err != nil {
		return errors.WrapTransient(err, "KVStore", "Save", "put KV entry")
	}
	return nil
}
