package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/libkiosk/core"
	"github.com/trezcool/libkiosk/storage/database/boltdb"
)

// CreateIfNotExist creates the directory holding the database file.
func CreateIfNotExist(conf *core.Config) error {
	dir := filepath.Dir(conf.Database.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating database directory %s", dir)
	}
	return nil
}

// Open opens the database file. The file is locked exclusively: a second kiosk process on the same
// file fails once conf.Database.Timeout elapses.
func Open(conf *core.Config) (*bolt.DB, error) {
	db, err := bolt.Open(conf.Database.Path, 0o600, &bolt.Options{Timeout: conf.Database.Timeout})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, core.NewStorageError("open", errors.Wrapf(err, "%s is locked by another process", conf.Database.Path))
		}
		return nil, core.NewStorageError("open", err)
	}
	return db, nil
}

func Migrate(db *bolt.DB) error {
	if err := boltdb.Migrate(db); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// Setup creates, opens and migrates the database.
func Setup(conf *core.Config) (*bolt.DB, error) {
	if err := CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := Open(conf)
	if err != nil {
		return nil, err
	}
	if err = Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
