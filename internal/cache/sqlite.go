package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"amazon-firefly/internal/chrono"
	"amazon-firefly/internal/order"
	"amazon-firefly/lib/sqliteutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_instance (
	name TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cache_order (
	instance TEXT NOT NULL REFERENCES cache_instance(name) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	order_id TEXT NOT NULL,
	date TEXT NOT NULL,
	amount TEXT NOT NULL,
	description TEXT NOT NULL,
	merchant TEXT NOT NULL,
	PRIMARY KEY (instance, position)
);

CREATE TABLE IF NOT EXISTS cache_product (
	instance TEXT NOT NULL REFERENCES cache_instance(name) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	date TEXT NOT NULL,
	product TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price TEXT NOT NULL,
	shipment_status TEXT NOT NULL,
	PRIMARY KEY (instance, position)
);
`

// SQLStore keeps instances in a sqlite (or remote libsql) database, rows keep
// their position so loading returns them in the order they were saved.
type SQLStore struct {
	db   *sql.DB
	time chrono.TimeAPI
}

func NewSQLStore(ctx context.Context, config sqliteutil.Config, time chrono.TimeAPI) (SQLStore, error) {
	db, err := config.OpenDB()
	if err != nil {
		return SQLStore{}, err
	}
	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()
		return SQLStore{}, fmt.Errorf("create schema: %w", err)
	}
	if time == nil {
		time = chrono.NewStandardTime()
	}
	return SQLStore{db: db, time: time}, nil
}

func (s SQLStore) Save(ctx context.Context, name string, orders []order.Order, products []order.Product) (string, error) {
	now := s.time.Now()
	name, err := instanceName(name, now)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	// saving under an existing name replaces it
	for _, table := range []string{"cache_product", "cache_order"} {
		_, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE instance = ?", name)
		if err != nil {
			return "", err
		}
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM cache_instance WHERE name = ?", name)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO cache_instance (name, created_at) VALUES (?, ?)",
		name, now.UnixNano(),
	)
	if err != nil {
		return "", err
	}
	for i, o := range orders {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO cache_order (instance, position, order_id, date, amount, description, merchant)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			name, i, o.OrderID, o.Date, o.Amount, o.Description, o.Merchant,
		)
		if err != nil {
			return "", fmt.Errorf("insert order %d: %w", i, err)
		}
	}
	for i, p := range products {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO cache_product (instance, position, date, product, quantity, price, shipment_status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			name, i, p.Date, p.Product, p.Quantity, p.Price, p.ShipmentStatus,
		)
		if err != nil {
			return "", fmt.Errorf("insert product %d: %w", i, err)
		}
	}

	return name, tx.Commit()
}

func (s SQLStore) resolve(ctx context.Context, name string) (string, error) {
	var row *sql.Row
	if name == "" || name == Latest {
		row = s.db.QueryRowContext(ctx, "SELECT name FROM cache_instance ORDER BY created_at DESC, name DESC LIMIT 1")
	} else {
		row = s.db.QueryRowContext(ctx, "SELECT name FROM cache_instance WHERE name = ?", name)
	}

	var resolved string
	err := row.Scan(&resolved)
	if errors.Is(err, sql.ErrNoRows) {
		if name == "" {
			name = Latest
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return resolved, err
}

func (s SQLStore) Load(ctx context.Context, name string) ([]order.Order, []order.Product, error) {
	name, err := s.resolve(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	orderRows, err := s.db.QueryContext(
		ctx,
		"SELECT order_id, date, amount, description, merchant FROM cache_order WHERE instance = ? ORDER BY position",
		name,
	)
	if err != nil {
		return nil, nil, err
	}
	defer orderRows.Close()

	orders := []order.Order{}
	for orderRows.Next() {
		var o order.Order
		err = orderRows.Scan(&o.OrderID, &o.Date, &o.Amount, &o.Description, &o.Merchant)
		if err != nil {
			return nil, nil, err
		}
		orders = append(orders, o)
	}
	if err = orderRows.Err(); err != nil {
		return nil, nil, err
	}

	productRows, err := s.db.QueryContext(
		ctx,
		"SELECT date, product, quantity, price, shipment_status FROM cache_product WHERE instance = ? ORDER BY position",
		name,
	)
	if err != nil {
		return nil, nil, err
	}
	defer productRows.Close()

	products := []order.Product{}
	for productRows.Next() {
		var p order.Product
		err = productRows.Scan(&p.Date, &p.Product, &p.Quantity, &p.Price, &p.ShipmentStatus)
		if err != nil {
			return nil, nil, err
		}
		products = append(products, p)
	}
	return orders, products, productRows.Err()
}

func (s SQLStore) Info(ctx context.Context, name string) (Info, error) {
	name, err := s.resolve(ctx, name)
	if err != nil {
		return Info{}, err
	}

	var createdAt int64
	info := Info{Name: name}
	err = s.db.QueryRowContext(
		ctx,
		`SELECT
			created_at,
			(SELECT count(*) FROM cache_order WHERE instance = cache_instance.name),
			(SELECT count(*) FROM cache_product WHERE instance = cache_instance.name)
		FROM cache_instance WHERE name = ?`,
		name,
	).Scan(&createdAt, &info.Orders, &info.Products)
	if err != nil {
		return Info{}, err
	}
	info.CreatedAt = time.Unix(0, createdAt)
	return info, nil
}

func (s SQLStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM cache_instance ORDER BY created_at, name")
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(names))
	for _, name := range names {
		info, err := s.Info(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (s SQLStore) Close() error {
	return s.db.Close()
}
