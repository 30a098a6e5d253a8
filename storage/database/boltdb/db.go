package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/libkiosk/core"
)

// SchemaVersion is the layout version written by Migrate.
const SchemaVersion = 1

var (
	studentsBucket = []byte("students")
	eventsBucket   = []byte("attendanceLogs")
	countersBucket = []byte("dailyStats")
	settingsBucket = []byte("settings")

	buckets = [][]byte{studentsBucket, eventsBucket, countersBucket, settingsBucket}

	schemaVersionKey = []byte("schemaVersion")

	ErrSchemaVersion = errors.New("unsupported schema version")
)

// Migrate creates the missing buckets and checks the schema version.
func Migrate(db *bolt.DB) error {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		settings := tx.Bucket(settingsBucket)
		version, err := getInt(settings, schemaVersionKey)
		if err != nil {
			return err
		}
		switch {
		case version == 0:
			return putInt(settings, schemaVersionKey, SchemaVersion)
		case version > SchemaVersion:
			return errors.Wrapf(ErrSchemaVersion, "found %d, max supported %d", version, SchemaVersion)
		}
		return nil
	})
	return core.NewStorageError("migrate", err)
}

// update runs fn in a read-write transaction; engine failures become core.StorageError
// while the sentinels listed in passthrough are returned as is.
func update(ctx context.Context, db *bolt.DB, op string, fn func(tx *bolt.Tx) error, passthrough ...error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storageErr(op, db.Update(fn), passthrough)
}

func view(ctx context.Context, db *bolt.DB, op string, fn func(tx *bolt.Tx) error, passthrough ...error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storageErr(op, db.View(fn), passthrough)
}

func storageErr(op string, err error, passthrough []error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range passthrough {
		if errors.Cause(err) == sentinel {
			return err
		}
	}
	if err == bolt.ErrDatabaseNotOpen {
		err = core.NewShutdownError(err.Error())
	}
	return core.NewStorageError(op, err)
}

func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("bucket %s not found; database not migrated", name)
	}
	return b, nil
}

func get(b *bolt.Bucket, key []byte, v interface{}) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

func put(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return b.Put(key, data)
}

func getInt(b *bolt.Bucket, key []byte) (int, error) {
	data := b.Get(key)
	if data == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, errors.Wrapf(err, "decoding %s", key)
	}
	return n, nil
}

func putInt(b *bolt.Bucket, key []byte, n int) error {
	return b.Put(key, []byte(strconv.Itoa(n)))
}

// itob encodes a sequence as a big-endian key so cursors iterate in insertion order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
