package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/order"
)

const (
	ordersFile   = "orders.json"
	productsFile = "products.json"
	infoFile     = "info.json"
)

// DirStore keeps every instance as a directory of json files:
//
//	<dir>/<name>/orders.json
//	<dir>/<name>/products.json
//	<dir>/latest -> <name>
//
// Where symlinks are not available latest is a plain file holding the name.
type DirStore struct {
	dir  string
	time chrono.TimeAPI
}

func NewDirStore(dir string, time chrono.TimeAPI) (DirStore, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return DirStore{}, err
	}
	if time == nil {
		time = chrono.NewStandardTime()
	}
	return DirStore{dir: dir, time: time}, nil
}

func writeJSON(path string, value any) error {
	serialized, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, serialized, 0644)
}

func readJSON(path string, out any) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(contents, out)
}

func (s DirStore) Save(ctx context.Context, name string, orders []order.Order, products []order.Product) (string, error) {
	now := s.time.Now()
	name, err := instanceName(name, now)
	if err != nil {
		return "", err
	}
	instance := filepath.Join(s.dir, name)
	err = os.MkdirAll(instance, 0755)
	if err != nil {
		return "", err
	}

	orderMaps := make([]map[string]any, len(orders))
	for i, o := range orders {
		orderMaps[i] = o.ToMap()
	}
	productMaps := make([]map[string]any, len(products))
	for i, p := range products {
		productMaps[i] = p.ToMap()
	}

	err = writeJSON(filepath.Join(instance, ordersFile), orderMaps)
	if err != nil {
		return "", fmt.Errorf("write orders: %w", err)
	}
	err = writeJSON(filepath.Join(instance, productsFile), productMaps)
	if err != nil {
		return "", fmt.Errorf("write products: %w", err)
	}
	err = writeJSON(filepath.Join(instance, infoFile), Info{
		Name:      name,
		CreatedAt: now,
		Orders:    len(orders),
		Products:  len(products),
	})
	if err != nil {
		return "", fmt.Errorf("write info: %w", err)
	}

	return name, s.pointLatest(name)
}

func (s DirStore) pointLatest(name string) error {
	latest := filepath.Join(s.dir, Latest)
	err := os.Remove(latest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	err = os.Symlink(name, latest)
	if err == nil {
		return nil
	}
	return os.WriteFile(latest, []byte(name), 0644)
}

func (s DirStore) resolve(name string) (string, error) {
	if name != "" && name != Latest {
		_, err := instanceName(name, s.time.Now())
		if err != nil {
			return "", err
		}
		_, err = os.Stat(filepath.Join(s.dir, name, ordersFile))
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return name, err
	}

	latest := filepath.Join(s.dir, Latest)
	stat, err := os.Lstat(latest)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, Latest)
	}
	if err != nil {
		return "", err
	}
	if stat.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(latest)
		if err != nil {
			return "", err
		}
		return filepath.Base(target), nil
	}
	contents, err := os.ReadFile(latest)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(contents)), nil
}

func (s DirStore) Load(ctx context.Context, name string) ([]order.Order, []order.Product, error) {
	name, err := s.resolve(name)
	if err != nil {
		return nil, nil, err
	}
	instance := filepath.Join(s.dir, name)

	var orderMaps []map[string]any
	err = readJSON(filepath.Join(instance, ordersFile), &orderMaps)
	if err != nil {
		return nil, nil, fmt.Errorf("read orders: %w", err)
	}
	var productMaps []map[string]any
	err = readJSON(filepath.Join(instance, productsFile), &productMaps)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("read products: %w", err)
	}

	orders := make([]order.Order, len(orderMaps))
	for i, m := range orderMaps {
		orders[i] = order.OrderFromMap(m)
	}
	products := make([]order.Product, len(productMaps))
	for i, m := range productMaps {
		products[i] = order.ProductFromMap(m)
	}
	return orders, products, nil
}

func (s DirStore) Info(ctx context.Context, name string) (Info, error) {
	name, err := s.resolve(name)
	if err != nil {
		return Info{}, err
	}

	var info Info
	err = readJSON(filepath.Join(s.dir, name, infoFile), &info)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Info{}, err
	}

	// instances written by hand have no info file
	orders, products, err := s.Load(ctx, name)
	if err != nil {
		return Info{}, err
	}
	stat, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		return Info{}, err
	}
	return Info{
		Name:      name,
		CreatedAt: stat.ModTime(),
		Orders:    len(orders),
		Products:  len(products),
	}, nil
}

func (s DirStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if !e.IsDir() || e.Name() == Latest {
			continue
		}
		info, err := s.Info(ctx, e.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s DirStore) Close() error {
	return nil
}
