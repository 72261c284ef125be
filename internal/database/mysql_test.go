package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMySQLMock(t *testing.T) (sqlmock.Sqlmock, *MySQLAdapter) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewMySQLAdapter(db)
}

func TestMySQLAdapter_ListTables(t *testing.T) {
	mock, adapter := newMySQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("table_schema = DATABASE()")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers"))

	tables, err := adapter.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, tables)
}

func TestMySQLAdapter_ListColumns(t *testing.T) {
	mock, adapter := newMySQLMock(t)

	rows := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "column_key", "column_comment"}).
		AddRow("id", "int", "NO", nil, nil, "PRI", "").
		AddRow("email", "varchar", "NO", nil, int64(100), "UNI", "login").
		AddRow("city", "varchar", "YES", "Lisbon", int64(40), "", "")

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("customers").
		WillReturnRows(rows)

	columns, err := adapter.ListColumns(context.Background(), "customers")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.False(t, columns[0].Nullable)
	assert.False(t, columns[0].Unique)
	assert.Nil(t, columns[0].Comment)

	assert.True(t, columns[1].Unique)
	require.NotNil(t, columns[1].Comment)
	assert.Equal(t, "login", *columns[1].Comment)

	assert.True(t, columns[2].Nullable)
	require.NotNil(t, columns[2].Default)
	assert.Equal(t, "Lisbon", *columns[2].Default)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAdapter_ListForeignKeysReadsRulesFromReferentialConstraints(t *testing.T) {
	mock, adapter := newMySQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN information_schema.referential_constraints rc")).
		WithArgs("orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "referenced_table_name", "referenced_column_name", "delete_rule", "update_rule"}).
			AddRow("customer_id", "customers", "id", "SET NULL", "CASCADE"))

	fks, err := adapter.ListForeignKeys(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "SET NULL", fks[0].DeleteRule)
	assert.Equal(t, "CASCADE", fks[0].UpdateRule)
}

func TestMySQLAdapter_ListPrimaryKeys(t *testing.T) {
	mock, adapter := newMySQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("constraint_name = 'PRIMARY'")).
		WithArgs("customers").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	pks, err := adapter.ListPrimaryKeys(context.Background(), "customers")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pks)
}

func TestMySQLAdapter_HasNoCheckConstraints(t *testing.T) {
	_, adapter := newMySQLMock(t)

	var a Adapter = adapter
	_, ok := a.(CheckConstraintLister)
	assert.False(t, ok)
	_, ok = a.(UniqueConstraintLister)
	assert.True(t, ok)
}
