package api

import (
	"context"
	"fmt"
	"net/http"

	"dbmask/internal/anonymize"
	"dbmask/internal/database"
	"dbmask/internal/introspect"
	"dbmask/internal/pii"
	"dbmask/internal/plan"
	"dbmask/internal/session"
	"dbmask/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPreviewLimit = 10
	maxPreviewLimit     = 100
)

// OpenFunc opens and verifies a database connection.
type OpenFunc func(ctx context.Context, cfg database.ConnectionConfig) (*database.Connection, error)

type Handler struct {
	store    *session.Store
	detector *pii.Detector
	cfg      config.Config
	open     OpenFunc
	logger   *zap.Logger
}

func NewHandler(store *session.Store, detector *pii.Detector, cfg config.Config, open OpenFunc, logger *zap.Logger) *Handler {
	if open == nil {
		open = database.Open
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, detector: detector, cfg: cfg, open: open, logger: logger}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "dbmask API is running",
	})
}

// Connect handles POST /api/db/connect
func (h *Handler) Connect(c *gin.Context) {
	var req database.ConnectionConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		fail(c, err)
		return
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()

	conn, err := h.open(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	id := sessionID(c)
	h.store.Create(id, conn)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("Connected to %s database: %s", req.Type, req.Database),
		"sessionId": id,
	})
}

// Disconnect handles POST /api/db/disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	h.store.Evict(sessionID(c))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Disconnected from database",
	})
}

// Status handles GET /api/db/status
func (h *Handler) Status(c *gin.Context) {
	conn, err := h.store.Get(sessionID(c))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "dbType": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "dbType": conn.Dialect})
}

// Schema handles GET /api/db/schema
func (h *Handler) Schema(c *gin.Context) {
	ctx, cancel := h.queryContext(c)
	defer cancel()

	annotated, err := h.annotatedSchema(ctx, sessionID(c), h.cfg.Schema)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, annotated)
}

type previewRequest struct {
	Table      string                     `json:"table" binding:"required"`
	Limit      int                        `json:"limit"`
	Strategies []anonymize.StrategyConfig `json:"strategies"`
}

type previewResponse struct {
	Table      string                     `json:"table"`
	Strategies []anonymize.StrategyConfig `json:"strategies"`
	Columns    []string                   `json:"columns"`
	Rows       [][]any                    `json:"rows"`
}

// Preview handles POST /api/anonymize/preview. Without explicit strategies
// the suggested plan, including configured rules, is used.
func (h *Handler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	for _, sc := range req.Strategies {
		if _, err := anonymize.ParseStrategy(string(sc.Strategy)); err != nil {
			fail(c, fmt.Errorf("column %q: %w", sc.ColumnName, err))
			return
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPreviewLimit
	}
	limit = min(limit, maxPreviewLimit)

	ctx, cancel := h.queryContext(c)
	defer cancel()

	id := sessionID(c)
	conn, err := h.store.Get(id)
	if err != nil {
		fail(c, err)
		return
	}

	schemaCfg := h.cfg.Schema
	schemaCfg.IncludeTables = []string{req.Table}
	schemaCfg.ExcludeTables = nil
	annotated, err := h.annotatedSchema(ctx, id, schemaCfg)
	if err != nil {
		fail(c, err)
		return
	}
	if len(annotated.Tables) == 0 {
		fail(c, fmt.Errorf("%w: %s", errTableNotFound, req.Table))
		return
	}
	table := annotated.Tables[0].Name

	strategies := req.Strategies
	if len(strategies) == 0 {
		p, err := plan.Build(annotated, h.cfg.Anonymize.Rules)
		if err != nil {
			fail(c, err)
			return
		}
		strategies = p[table]
	}

	rows, err := database.ReadRows(ctx, conn.DB, conn.Dialect, h.cfg.Database.Schema, table, limit)
	if err != nil {
		fail(c, err)
		return
	}

	batch := &anonymize.Batch{Workers: 1, Logger: h.logger}
	out, err := batch.Apply(ctx, rows, strategies)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, previewResponse{
		Table:      table,
		Strategies: strategies,
		Columns:    out.Columns,
		Rows:       out.Rows,
	})
}

func (h *Handler) annotatedSchema(ctx context.Context, id string, schemaCfg config.SchemaConfig) (pii.SchemaWithPII, error) {
	conn, err := h.store.Get(id)
	if err != nil {
		return pii.SchemaWithPII{}, err
	}

	adapter, err := conn.Adapter(h.cfg.Database.Schema)
	if err != nil {
		return pii.SchemaWithPII{}, err
	}

	snapshot, err := introspect.New(adapter, schemaCfg, h.logger).Introspect(ctx)
	if err != nil {
		return pii.SchemaWithPII{}, fmt.Errorf("failed to introspect schema: %w", err)
	}
	return h.detector.Annotate(snapshot), nil
}

func (h *Handler) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.cfg.Server.QueryTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.cfg.Server.QueryTimeout)
}
