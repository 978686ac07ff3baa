package cache

import (
	"context"
	"fmt"
	"strings"

	"amazon-firefly/internal/chrono"
	"amazon-firefly/lib/sqliteutil"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	Backend string
	// Dir is the json backend's directory.
	Dir string
	// DSN is a sqlite file path or a libsql:// / http(s):// url.
	DSN       string
	AuthToken string
}

func (c Config) sqlite() sqliteutil.Config {
	if strings.Contains(c.DSN, "://") {
		return sqliteutil.Config{Url: c.DSN, AuthToken: c.AuthToken}
	}
	return sqliteutil.Config{File: c.DSN}
}

// Open opens the store the backend names, json when it is empty.
func Open(ctx context.Context, config Config, time chrono.TimeAPI) (Store, error) {
	switch config.Backend {
	case "", BackendJSON:
		store, err := NewDirStore(config.Dir, time)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendSQLite:
		store, err := NewSQLStore(ctx, config.sqlite(), time)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", config.Backend)
}
