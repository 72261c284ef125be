package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"dbmask/internal/anonymize"
	"dbmask/internal/database"
	"dbmask/internal/pii"
	"dbmask/internal/schema"
	"dbmask/internal/session"
	"dbmask/pkg/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *session.Store
}

func newTestServer(t *testing.T, open OpenFunc) *testServer {
	t.Helper()
	store := session.NewStore(nil)
	t.Cleanup(store.CloseAll)

	cfg := config.Config{
		Database: config.DatabaseConfig{Schema: "public"},
		Server:   config.ServerConfig{AllowedOrigins: []string{"*"}},
	}
	h := NewHandler(store, pii.NewDetector(nil), cfg, open, nil)
	return &testServer{router: NewRouter(h, cfg.Server, nil), store: store}
}

func (s *testServer) do(t *testing.T, method, path, sessionID string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func mockConnection(t *testing.T) (*database.Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &database.Connection{DB: db, Dialect: schema.PostgreSQL, Database: "shop"}, mock
}

func expectCustomersCatalog(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns c")).
		WithArgs("public", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "column_comment"}).
			AddRow("id", "integer", false, nil, nil, nil).
			AddRow("email", "character varying", false, nil, int64(255), nil).
			AddRow("notes", "text", true, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("con.contype = 'f'")).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "referenced_table", "referenced_column", "delete_rule", "update_rule"}))
	mock.ExpectQuery(regexp.QuoteMeta("i.indisprimary")).
		WillReturnRows(sqlmock.NewRows([]string{"attname"}).AddRow("id"))
	mock.ExpectQuery(regexp.QuoteMeta("tc.constraint_type = 'UNIQUE'")).
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))
	mock.ExpectQuery(regexp.QuoteMeta("pg_get_constraintdef")).
		WillReturnRows(sqlmock.NewRows([]string{"pg_get_constraintdef"}))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestConnect_MissingParameters(t *testing.T) {
	s := newTestServer(t, nil)

	w, body := s.do(t, http.MethodPost, "/api/db/connect", "", map[string]any{"type": "postgres", "host": "localhost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required connection parameters", body["error"])
}

func TestConnect_StatusDisconnect(t *testing.T) {
	conn, mock := mockConnection(t)
	mock.ExpectClose()
	var got database.ConnectionConfig
	s := newTestServer(t, func(ctx context.Context, cfg database.ConnectionConfig) (*database.Connection, error) {
		got = cfg
		return conn, nil
	})

	req := map[string]any{"type": "postgres", "host": "db.local", "port": 5432, "database": "shop", "user": "alice", "password": "pw"}
	w, body := s.do(t, http.MethodPost, "/api/db/connect", "s1", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Connected to postgres database: shop", body["message"])
	assert.Equal(t, "s1", body["sessionId"])
	assert.Equal(t, "alice", got.User)

	_, body = s.do(t, http.MethodGet, "/api/db/status", "s1", nil)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "postgres", body["dbType"])

	_, body = s.do(t, http.MethodGet, "/api/db/status", "", nil)
	assert.Equal(t, false, body["connected"])
	assert.Nil(t, body["dbType"])

	w, body = s.do(t, http.MethodPost, "/api/db/disconnect", "s1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Disconnected from database", body["message"])

	_, body = s.do(t, http.MethodGet, "/api/db/status", "s1", nil)
	assert.Equal(t, false, body["connected"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_OpenFailure(t *testing.T) {
	s := newTestServer(t, func(ctx context.Context, cfg database.ConnectionConfig) (*database.Connection, error) {
		return nil, errors.New("failed to connect to database: connection refused")
	})

	req := map[string]any{"type": "mysql", "host": "db.local", "database": "shop", "user": "alice"}
	w, body := s.do(t, http.MethodPost, "/api/db/connect", "", req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"], "connection refused")
}

func TestSchema_NoConnection(t *testing.T) {
	s := newTestServer(t, nil)

	w, body := s.do(t, http.MethodGet, "/api/db/schema", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No active database connection", body["error"])
}

func TestSchema_WithPII(t *testing.T) {
	s := newTestServer(t, nil)
	conn, mock := mockConnection(t)
	s.store.Create(session.DefaultID, conn)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns c")).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "column_comment"}).
			AddRow("id", "integer", false, nil, nil, nil).
			AddRow("email", "character varying", false, nil, int64(255), nil))
	mock.ExpectQuery(regexp.QuoteMeta("con.contype = 'f'")).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "referenced_table", "referenced_column", "delete_rule", "update_rule"}))
	mock.ExpectQuery(regexp.QuoteMeta("i.indisprimary")).
		WillReturnRows(sqlmock.NewRows([]string{"attname"}).AddRow("id"))
	mock.ExpectQuery(regexp.QuoteMeta("tc.constraint_type = 'UNIQUE'")).
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))
	mock.ExpectQuery(regexp.QuoteMeta("pg_get_constraintdef")).
		WillReturnRows(sqlmock.NewRows([]string{"pg_get_constraintdef"}))

	w, _ := s.do(t, http.MethodGet, "/api/db/schema", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out pii.SchemaWithPII
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Tables, 1)
	assert.Equal(t, "customers", out.Tables[0].Name)
	assert.True(t, out.Tables[0].Columns[0].IsPrimaryKey)
	require.Len(t, out.Tables[0].PIIDetection, 2)
	assert.Equal(t, pii.DirectIdentifier, out.Tables[0].PIIDetection[1].Classification)
	assert.Equal(t, pii.NonSensitive, out.Tables[0].PIIDetection[0].Classification)
}

func TestPreview_SuggestedPlan(t *testing.T) {
	s := newTestServer(t, nil)
	conn, mock := mockConnection(t)
	s.store.Create("s1", conn)

	expectCustomersCatalog(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "public"."customers" LIMIT $1`)).
		WithArgs(defaultPreviewLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "notes"}).
			AddRow(int64(42), "jane@shop.io", "vip").
			AddRow(int64(43), nil, nil))

	w, _ := s.do(t, http.MethodPost, "/api/anonymize/preview", "s1", map[string]any{"table": "customers"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out previewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, []string{"id", "email", "notes"}, out.Columns)
	require.Len(t, out.Rows, 2)

	assert.Equal(t, anonymize.Hash("42"), out.Rows[0][0])
	email, ok := out.Rows[0][1].(string)
	require.True(t, ok)
	assert.NotEqual(t, "jane@shop.io", email)
	assert.True(t, strings.Contains(email, "@"))
	assert.Equal(t, "vip", out.Rows[0][2])
	assert.Nil(t, out.Rows[1][1])

	require.Len(t, out.Strategies, 3)
	assert.Equal(t, anonymize.DeterministicHash, out.Strategies[0].Strategy)
	assert.Equal(t, anonymize.SyntheticRealistic, out.Strategies[1].Strategy)
	assert.Equal(t, anonymize.KeepOriginal, out.Strategies[2].Strategy)
}

func TestPreview_ReadsTheIntrospectedTableName(t *testing.T) {
	s := newTestServer(t, nil)
	conn, mock := mockConnection(t)
	s.store.Create(session.DefaultID, conn)

	expectCustomersCatalog(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "public"."customers" LIMIT $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "notes"}).AddRow(int64(1), "a@b.io", nil))

	w, _ := s.do(t, http.MethodPost, "/api/anonymize/preview", "", map[string]any{"table": "Customers", "limit": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out previewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "customers", out.Table)
	assert.Len(t, out.Strategies, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreview_UnknownStrategy(t *testing.T) {
	s := newTestServer(t, nil)

	body := map[string]any{
		"table":      "customers",
		"strategies": []map[string]any{{"columnName": "email", "strategy": "scramble"}},
	}
	w, out := s.do(t, http.MethodPost, "/api/anonymize/preview", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "unknown strategy")
}

func TestPreview_TableNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	conn, mock := mockConnection(t)
	s.store.Create(session.DefaultID, conn)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))

	w, out := s.do(t, http.MethodPost, "/api/anonymize/preview", "", map[string]any{"table": "customers"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "table not found")
}
