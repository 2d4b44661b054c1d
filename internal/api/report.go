// Financial report endpoints. Unlike the dynamic surface these run against
// one fixed shape, which lets them carry a policy the planner does not have
// generically: default ordering by the temporal field, newest first.
package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/meshline/datashelf/internal/query"
	"github.com/meshline/datashelf/internal/registry"
	"github.com/meshline/datashelf/pkg/schema"
)

// financialCollection names the collection the report endpoints serve.
const financialCollection = "financialrecords"

// csvColumns is the export column order; import accepts the same header in
// any order.
var csvColumns = []string{"title", "description", "income", "expense", "balance", "created_at"}

// financialAdapter fetches the financial collection's adapter. A registry
// without it means the deployment disabled the report surface.
func (h *Handler) financialAdapter(c *gin.Context) *registry.Adapter {
	adapter, err := h.reg.Resolve(financialCollection)
	if err != nil {
		c.JSON(http.StatusNotFound, fail(err.Error()))
		return nil
	}
	return adapter
}

// FinancialReport handles GET /api/reports/financial: a paginated listing
// ordered by created_at descending.
func (h *Handler) FinancialReport(c *gin.Context) {
	adapter := h.financialAdapter(c)
	if adapter == nil {
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("pageSize"))
	plan := query.Plan{
		SortField: "created_at",
		SortDesc:  true,
		Page:      query.ClampPage(page, size),
	}

	records, total, err := adapter.Store.Select(plan)
	if err != nil {
		h.storeFailure(c, adapter.Collection, "report", err)
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

// FinancialExport handles GET /api/reports/financial/export, streaming the
// whole collection as CSV, newest first.
func (h *Handler) FinancialExport(c *gin.Context) {
	adapter := h.financialAdapter(c)
	if adapter == nil {
		return
	}

	plan := query.Plan{
		SortField: "created_at",
		SortDesc:  true,
		Page:      query.Page{All: true},
	}
	records, _, err := adapter.Store.Select(plan)
	if err != nil {
		h.storeFailure(c, adapter.Collection, "export", err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="financial-report.csv"`)

	w := csv.NewWriter(c.Writer)
	w.Write(csvColumns)
	for _, rec := range records {
		row := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			row[i] = csvCell(rec[col])
		}
		w.Write(row)
	}
	w.Flush()
	// A write error here usually means the client went away mid-stream; the
	// status line is already sent, so logging is all that is left.
	if err := w.Error(); err != nil {
		h.log.Warn("csv export aborted", "collection", adapter.Collection, "error", err)
	}
}

// csvCell renders one typed field value for the CSV export.
func csvCell(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		return tv.String()
	case time.Time:
		return tv.Format(schema.DateTimeLayout)
	default:
		return fmt.Sprint(tv)
	}
}

// FinancialImport handles POST /api/reports/financial/import. The body is a
// CSV document with a header row; every data row passes through the same
// required-field and coercion pipeline as a Create, so a malformed row
// rejects with a 400 naming the field. Rows before the failing one stay
// persisted; the response reports how many were imported.
func (h *Handler) FinancialImport(c *gin.Context) {
	adapter := h.financialAdapter(c)
	if adapter == nil {
		return
	}

	reader := csv.NewReader(c.Request.Body)
	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid CSV: missing header row"))
		return
	}

	imported := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, fail(fmt.Sprintf("invalid CSV at row %d: %v", imported+2, err)))
			return
		}

		payload := make(map[string]any, len(header))
		for i, key := range header {
			if i < len(row) && row[i] != "" {
				payload[key] = row[i]
			}
		}

		rec, err := h.buildRecord(adapter.Shape, payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, fail(fmt.Sprintf("row %d: %v", imported+2, err)))
			return
		}
		if err := adapter.Store.Insert(rec); err != nil {
			h.storeFailure(c, adapter.Collection, "import", err)
			return
		}
		imported++
	}

	c.JSON(http.StatusCreated, ok(fmt.Sprintf("imported %d records", imported), emptyData(), 0))
}
