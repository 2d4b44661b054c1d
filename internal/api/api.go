// Package api implements the HTTP surface of datashelf: generic CRUD and
// query handlers that work against any registered collection, plus the
// fixed-schema financial report endpoints. Handlers sequence the engine
// components (registry, field mapper, coercion, planner, store) and always
// answer with a shaped envelope; no raw error reaches a caller.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meshline/datashelf/internal/query"
	"github.com/meshline/datashelf/internal/registry"
	"github.com/meshline/datashelf/internal/store"
	"github.com/meshline/datashelf/pkg/schema"
)

// Handler serves the dynamic CRUD surface over a registry of collections.
type Handler struct {
	reg *registry.Registry
	log *slog.Logger
}

// NewHandler creates a handler over the given registry.
func NewHandler(reg *registry.Registry, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{reg: reg, log: log}
}

// Register mounts every route under /api. The report routes are static and
// take precedence over the dynamic :collection routes.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/reports/financial", h.FinancialReport)
	api.GET("/reports/financial/export", h.FinancialExport)
	api.POST("/reports/financial/import", h.FinancialImport)

	api.GET("/:collection", h.List)
	api.GET("/:collection/paginated", h.ListPaginated)
	api.GET("/:collection/:id", h.Get)
	api.POST("/:collection", h.Create)
	api.PUT("/:collection/:id", h.Update)
	api.DELETE("/:collection/:id", h.Delete)
}

// resolve maps the :collection path segment to its adapter. On failure it
// writes the 404 envelope whose message enumerates the registry catalog and
// returns nil.
func (h *Handler) resolve(c *gin.Context) *registry.Adapter {
	token := c.Param("collection")
	adapter, err := h.reg.Resolve(token)
	if err != nil {
		h.log.Debug("collection resolution failed", "token", token)
		c.JSON(http.StatusNotFound, fail(err.Error()))
		return nil
	}
	return adapter
}

// buildPlan assembles the query plan from the request's query string.
func buildPlan(c *gin.Context, shape *schema.Shape) query.Plan {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("pageSize"))
	return query.Build(
		shape,
		c.Query("filter"),
		c.Query("sort"),
		query.ParseDirection(c.Query("sortDirection")),
		query.ClampPage(page, size),
	)
}

// List handles GET /api/:collection.
func (h *Handler) List(c *gin.Context) {
	adapter := h.resolve(c)
	if adapter == nil {
		return
	}

	plan := buildPlan(c, adapter.Shape)
	records, _, err := adapter.Store.Select(plan)
	if err != nil {
		h.storeFailure(c, adapter.Collection, "list", err)
		return
	}
	if records == nil {
		records = []schema.Record{}
	}
	c.JSON(http.StatusOK, ok("success", records, len(records)))
}

// ListPaginated handles GET /api/:collection/paginated.
func (h *Handler) ListPaginated(c *gin.Context) {
	adapter := h.resolve(c)
	if adapter == nil {
		return
	}

	plan := buildPlan(c, adapter.Shape)
	records, total, err := adapter.Store.Select(plan)
	if err != nil {
		h.storeFailure(c, adapter.Collection, "list", err)
		return
	}
	if records == nil {
		records = []schema.Record{}
	}
	c.JSON(http.StatusOK, PagedEnvelope{
		Envelope:    ok("success", records, len(records)),
		TotalCount:  total,
		TotalPages:  plan.TotalPages(total),
		CurrentPage: plan.Page.Number,
		PageSize:    plan.Page.Size,
	})
}

// Get handles GET /api/:collection/:id.
func (h *Handler) Get(c *gin.Context) {
	adapter := h.resolve(c)
	if adapter == nil {
		return
	}

	rec, _, err := adapter.Store.Get(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
		c.JSON(http.StatusNotFound, fail("record not found"))
		return
	}
	if err != nil {
		h.storeFailure(c, adapter.Collection, "get", err)
		return
	}
	c.JSON(http.StatusOK, ok("success", rec, 1))
}

// Create handles POST /api/:collection. A single failing field rejects the
// whole request; nothing persists on partial failure.
func (h *Handler) Create(c *gin.Context) {
	adapter := h.resolve(c)
	if adapter == nil {
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid JSON body"))
		return
	}

	rec, err := h.buildRecord(adapter.Shape, payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	id := rec[adapter.Shape.PrimaryKey].(string)
	if err := adapter.Store.Insert(rec); err != nil {
		h.storeFailure(c, adapter.Collection, "create", err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/%s/%s", adapter.Collection, id))
	c.JSON(http.StatusCreated, ok("created", rec, 1))
}

// buildRecord validates required fields and assembles a new record from an
// untyped payload. Shared by Create and the CSV import.
func (h *Handler) buildRecord(shape *schema.Shape, payload map[string]any) (schema.Record, error) {
	for i := range shape.Fields {
		f := &shape.Fields[i]
		if !f.Required || f.Name == shape.PrimaryKey {
			continue
		}
		if !shape.ResolveRequired(f, payload) {
			return nil, fmt.Errorf("field %q is required", f.Name)
		}
	}

	rec := shape.NewRecord()
	if err := h.assignFields(shape, rec, payload); err != nil {
		return nil, err
	}

	rec[shape.PrimaryKey] = uuid.Must(uuid.NewV7()).String()
	if shape.Derive != nil {
		shape.Derive(rec)
	}
	return rec, nil
}

// assignFields resolves, coerces, and assigns every payload entry. Keys that
// resolve to nothing are skipped; the primary key and non-writable fields are
// skipped unconditionally. The first coercion failure aborts.
func (h *Handler) assignFields(shape *schema.Shape, rec schema.Record, payload map[string]any) error {
	for key, raw := range payload {
		f := shape.ResolveField(key)
		if f == nil {
			h.log.Debug("payload key resolves to no field", "shape", shape.Name, "key", key)
			continue
		}
		if f.Name == shape.PrimaryKey || !f.Writable {
			continue
		}
		value, err := schema.Coerce(raw, f)
		if err != nil {
			return err
		}
		rec[f.Name] = value
	}
	return nil
}

// Update handles PUT /api/:collection/:id. Field semantics match Create; a
// concurrent modification triggers an existence re-check so a vanished
// record answers 404 instead of a conflict.
func (h *Handler) Update(c *gin.Context) {
	adapter := h.resolve(c)
	if adapter == nil {
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid JSON body"))
		return
	}

	id := c.Param("id")
	rec, version, err := adapter.Store.Get(id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
		c.JSON(http.StatusNotFound, fail("record not found"))
		return
	}
	if err != nil {
		h.storeFailure(c, adapter.Collection, "update", err)
		return
	}

	if err := h.assignFields(adapter.Shape, rec, payload); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}
	if adapter.Shape.Derive != nil {
		adapter.Shape.Derive(rec)
	}

	switch err := adapter.Store.Update(id, rec, version); {
	case errors.Is(err, store.ErrConflict):
		if _, _, getErr := adapter.Store.Get(id); errors.Is(getErr, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, fail("record not found"))
			return
		}
		h.storeFailure(c, adapter.Collection, "update", err)
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, fail("record not found"))
	case err != nil:
		h.storeFailure(c, adapter.Collection, "update", err)
	default:
		c.JSON(http.StatusOK, ok("updated", rec, 1))
	}
}

// Delete handles DELETE /api/:collection/:id. Deleting an absent record is a
// 404, so repeated deletes are idempotent from the caller's view.
func (h *Handler) Delete(c *gin.Context) {
	adapter := h.resolve(c)
	if adapter == nil {
		return
	}

	switch err := adapter.Store.Delete(c.Param("id")); {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		c.JSON(http.StatusNotFound, fail("record not found"))
	case err != nil:
		h.storeFailure(c, adapter.Collection, "delete", err)
	default:
		c.JSON(http.StatusOK, ok("deleted", emptyData(), 0))
	}
}

// storeFailure shapes an unexpected persistence failure into a 500 envelope
// carrying the underlying message.
func (h *Handler) storeFailure(c *gin.Context, collection, op string, err error) {
	h.log.Warn("store operation failed", "collection", collection, "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, fail(err.Error()))
}
