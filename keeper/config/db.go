package config

import (
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/kvdb"
)

const (
	defaultDBName = "keeper.db"
	// DefaultDBTimeout is the default maximum time we wait for the bolt
	// database to be opened
	DefaultDBTimeout = 60 * time.Second
)

type DBConfig struct {
	// DBPath is the directory path in which the database file should be
	// stored.
	DBPath string `koanf:"db_path" yaml:"db_path"`

	// DBFileName is the name of the database file.
	DBFileName string `koanf:"db_file_name" yaml:"db_file_name"`

	// NoFreelistSync, if true, prevents the database from syncing its
	// freelist to disk, resulting in improved performance at the expense of
	// increased startup time.
	NoFreelistSync bool `koanf:"no_freelist_sync" yaml:"no_freelist_sync"`

	// AutoCompact specifies if a Bolt based database backend should be
	// automatically compacted on startup (if the minimum age of the
	// database file is reached). This will require additional disk space
	// for the compacted copy of the database but will result in an overall
	// lower database size after the compaction.
	AutoCompact bool `koanf:"auto_compact" yaml:"auto_compact"`

	// AutoCompactMinAge specifies the minimum time that must have passed
	// since a bolt database file was last compacted for the compaction to
	// be considered again.
	AutoCompactMinAge time.Duration `koanf:"auto_compact_min_age" yaml:"auto_compact_min_age"`

	// DBTimeout specifies the timeout value to use when opening the wallet
	// database.
	DBTimeout time.Duration `koanf:"db_timeout" yaml:"db_timeout"`
}

func DefaultDBConfigWithHomePath(homePath string) *DBConfig {
	return &DBConfig{
		DBPath:            DataDir(homePath),
		DBFileName:        defaultDBName,
		NoFreelistSync:    true,
		AutoCompact:       false,
		AutoCompactMinAge: kvdb.DefaultBoltAutoCompactMinAge,
		DBTimeout:         DefaultDBTimeout,
	}
}

func (db *DBConfig) Validate() error {
	if db.DBPath == "" {
		return fmt.Errorf("DB path cannot be empty")
	}

	if db.DBFileName == "" {
		return fmt.Errorf("DB file name cannot be empty")
	}

	return nil
}

func (db *DBConfig) GetDBBackend() (kvdb.Backend, error) {
	// Create the bolt backend.
	return kvdb.GetBoltBackend(&kvdb.BoltBackendConfig{
		DBPath:            db.DBPath,
		DBFileName:        db.DBFileName,
		NoFreelistSync:    db.NoFreelistSync,
		AutoCompact:       db.AutoCompact,
		AutoCompactMinAge: db.AutoCompactMinAge,
		DBTimeout:         db.DBTimeout,
	})
}
