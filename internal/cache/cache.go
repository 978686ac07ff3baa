// Package cache keeps scraped orders and products around between runs so
// processing can be repeated without scraping again.
//
// A cache holds any number of named instances, each one the result of a
// single scrape. The name "latest" always resolves to the most recently saved
// instance.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"amazon-firefly/internal/order"
)

var ErrNotFound = errors.New("cache instance not found")

const (
	Latest          = "latest"
	timestampLayout = "20060102_150405"
)

// Info describes a saved instance.
type Info struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Orders    int       `json:"orders"`
	Products  int       `json:"products"`
}

type Store interface {
	// Save stores orders and products under name, a timestamp when name is
	// empty, and returns the name used.
	Save(ctx context.Context, name string, orders []order.Order, products []order.Product) (string, error)
	// Load returns the instance saved under name, "" and "latest" load the
	// most recent one.
	Load(ctx context.Context, name string) ([]order.Order, []order.Product, error)
	Info(ctx context.Context, name string) (Info, error)
	// List returns every instance, oldest first.
	List(ctx context.Context) ([]Info, error)
	Close() error
}

func instanceName(name string, now time.Time) (string, error) {
	if name == "" {
		return now.Format(timestampLayout), nil
	}
	if name == Latest || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid cache instance name %q", name)
	}
	return name, nil
}
