//go:build integration

package introspect

import (
	"context"
	"path/filepath"
	"testing"

	"dbmask/internal/anonymize"
	"dbmask/internal/database"
	"dbmask/internal/pii"
	"dbmask/internal/plan"
	"dbmask/internal/schema"
	"dbmask/internal/sink"
	"dbmask/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const shopDDL = `
CREATE TABLE customers (
    id         serial PRIMARY KEY,
    email      varchar(255) NOT NULL UNIQUE,
    full_name  text,
    birth_date date,
    notes      text
);
COMMENT ON COLUMN customers.email IS 'login address';

CREATE TABLE orders (
    id          serial PRIMARY KEY,
    customer_id integer REFERENCES customers(id) ON DELETE CASCADE,
    total       numeric(10,2) NOT NULL DEFAULT 0 CHECK (total >= 0)
);

INSERT INTO customers (email, full_name, birth_date, notes) VALUES
    ('ada@example.com', 'Ada Lovelace', '1815-12-10', 'vip'),
    ('alan@example.com', 'Alan Turing', '1912-06-23', NULL);
INSERT INTO orders (customer_id, total) VALUES (1, 10.50), (2, 99.99), (1, 3.00);
`

const salesDDL = `
CREATE SCHEMA sales;
CREATE TABLE sales.order_items (
    order_id integer,
    line_no  integer,
    PRIMARY KEY (order_id, line_no)
);
CREATE TABLE sales.shipments (
    id       serial PRIMARY KEY,
    order_id integer,
    line_no  integer,
    FOREIGN KEY (order_id, line_no) REFERENCES sales.order_items (order_id, line_no)
);
CREATE TABLE public.shipments (id integer);

INSERT INTO sales.order_items VALUES (1, 1), (1, 2);
INSERT INTO sales.shipments (order_id, line_no) VALUES (1, 2);
`

func TestPostgresCompositeForeignKeysInSchema(t *testing.T) {
	ctx := context.Background()
	conn := startPostgres(t, ctx)

	_, err := conn.DB.ExecContext(ctx, salesDDL)
	require.NoError(t, err)

	adapter, err := conn.Adapter("sales")
	require.NoError(t, err)

	snapshot, err := New(adapter, config.SchemaConfig{Workers: 2}, nil).Introspect(ctx)
	require.NoError(t, err)

	shipments := snapshot.Table("shipments")
	require.NotNil(t, shipments)
	require.Len(t, shipments.ForeignKeys, 2)
	for _, fk := range shipments.ForeignKeys {
		assert.Equal(t, "order_items", fk.ReferencedTable)
		assert.Equal(t, fk.ColumnName, fk.ReferencedColumn)
	}

	rows, err := database.ReadRows(ctx, conn.DB, conn.Dialect, "sales", "shipments", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "order_id", "line_no"}, rows.Columns)
	assert.Len(t, rows.Rows, 1)
}

func startPostgres(t *testing.T, ctx context.Context) *database.Connection {
	t.Helper()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("shop"),
		postgres.WithUsername("shop"),
		postgres.WithPassword("shop"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := database.OpenURL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPostgresEndToEnd(t *testing.T) {
	ctx := context.Background()
	conn := startPostgres(t, ctx)

	_, err := conn.DB.ExecContext(ctx, shopDDL)
	require.NoError(t, err)

	adapter, err := conn.Adapter("public")
	require.NoError(t, err)

	snapshot, err := New(adapter, config.SchemaConfig{Workers: 2}, nil).Introspect(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Tables, 2)

	customers := snapshot.Table("customers")
	require.NotNil(t, customers)
	assert.Equal(t, []string{"id"}, customers.PrimaryKeys)
	assert.Equal(t, [][]string{{"email"}}, customers.UniqueConstraints)
	require.NotNil(t, customers.Column("email").Comment)
	assert.Equal(t, "login address", *customers.Column("email").Comment)
	require.NotNil(t, customers.Column("email").MaxLength)
	assert.Equal(t, 255, *customers.Column("email").MaxLength)

	orders := snapshot.Table("orders")
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, schema.Cascade, orders.ForeignKeys[0].OnDelete)
	assert.Equal(t, schema.NoAction, orders.ForeignKeys[0].OnUpdate)
	require.Len(t, orders.CheckConstraints, 1)
	assert.Contains(t, orders.CheckConstraints[0], "total")

	annotated := pii.NewDetector(nil).Annotate(snapshot)
	p, err := plan.Build(annotated, nil)
	require.NoError(t, err)

	batch := &anonymize.Batch{Workers: 2, ChunkSize: 1}
	out, err := sink.OpenSQLite(filepath.Join(t.TempDir(), "anonymized.db"))
	require.NoError(t, err)
	defer out.Close()

	masked := map[string]*database.RowSet{}
	for _, table := range annotated.Tables {
		rows, err := database.ReadRows(ctx, conn.DB, conn.Dialect, "public", table.Name, 0)
		require.NoError(t, err)

		m, err := batch.Apply(ctx, rows, p[table.Name])
		require.NoError(t, err)
		require.NoError(t, out.WriteTable(ctx, table.TableInfo, m))
		masked[table.Name] = m
	}

	// hashed keys still join
	customerIDs := map[any]bool{}
	for _, row := range masked["customers"].Rows {
		customerIDs[row[0]] = true
		assert.NotEqual(t, "ada@example.com", row[1])
		assert.NotEqual(t, "alan@example.com", row[1])
	}
	for _, row := range masked["orders"].Rows {
		assert.True(t, customerIDs[row[1]], "order references an anonymized customer")
	}

	tables, err := out.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)
}
