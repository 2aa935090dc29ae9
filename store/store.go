package store

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "github.com/glebarez/go-sqlite" //nolint:revive
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bluefinx/foremost-parser/store/models"
)

type OpenOptions struct {
	Pragma map[string]interface{}
	Params map[string]string
	Config *gorm.Config
}

// Store wraps the sqlite database holding images, files, the hash index
// and the duplicate group bookkeeping.
type Store struct {
	DB *gorm.DB
}

// Open opens (creating if needed) the database file and migrates the
// schema.
func Open(file string, opts ...func(*OpenOptions)) (*Store, error) {
	o := &OpenOptions{
		Pragma: map[string]interface{}{
			"synchronous":        0,
			"journal_mode":       "WAL",
			"foreign_keys":       1,
			"busy_timeout":       3000, // 3s
			"wal_autocheckpoint": 2000,
		},
		Params: map[string]string{},
		Config: &gorm.Config{},
	}
	for _, opt := range opts {
		opt(o)
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, errors.Wrap(err, "resolve db path")
	}
	dsn := &url.URL{
		Scheme: "file",
		Path:   abs,
	}
	for k, v := range o.Pragma {
		dsn.RawQuery += "&_pragma=" + k + "(" + fmt.Sprint(v) + ")"
	}
	for k, v := range o.Params {
		dsn.RawQuery += "&" + k + "=" + v
	}
	dsn.RawQuery = strings.TrimPrefix(dsn.RawQuery, "&")

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn.String(),
	}, o.Config)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err = migrate(db); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		models.Image{},
		models.File{},
		models.HashIndexEntry{},
		models.DuplicateGroup{},
		models.GroupImageLink{},
		models.DuplicateMembership{},
	)
	return errors.Wrap(err, "migrate schema")
}
