// Package shapes declares the built-in record shapes served by shelfd and
// wires them into a registry. Embedders with their own record types register
// additional shapes the same way.
package shapes

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meshline/datashelf/internal/registry"
	"github.com/meshline/datashelf/internal/store"
	"github.com/meshline/datashelf/pkg/schema"
)

// Built-in collection names.
const (
	FinancialRecords = "financialrecords"
	Categories       = "categories"
)

// FinancialRecord is a ledger entry. Income and expense are exact decimals;
// balance is derived and never written by clients.
var FinancialRecord = schema.MustShape("FinancialRecord", "id", []schema.Field{
	{Name: "title", Kind: schema.KindString, Required: true, Writable: true},
	{Name: "description", Kind: schema.KindString, Required: true, Writable: true},
	{Name: "income", Alias: "income_amount", Kind: schema.KindDecimal, Required: true, Writable: true},
	{Name: "expense", Alias: "expense_amount", Kind: schema.KindDecimal, Required: true, Writable: true},
	{Name: "balance", Kind: schema.KindDecimal},
	{Name: "created_at", Kind: schema.KindDateTime, Writable: true},
}, deriveFinancial)

// deriveFinancial recomputes balance from income and expense and stamps
// created_at on records that never got one.
func deriveFinancial(rec schema.Record) {
	income, iok := rec["income"].(decimal.Decimal)
	expense, eok := rec["expense"].(decimal.Decimal)
	if iok && eok {
		rec["balance"] = income.Sub(expense)
	}
	if t, ok := rec["created_at"].(time.Time); !ok || t.IsZero() {
		rec["created_at"] = time.Now().UTC().Truncate(time.Second)
	}
}

// Category is a small classification record. Its fields cover every kind the
// coercion engine handles, which keeps the dynamic surface exercised by a
// shape that is not all strings and decimals.
var Category = schema.MustShape("Category", "id", []schema.Field{
	{Name: "name", Kind: schema.KindString, Required: true, Writable: true},
	{Name: "kind", Kind: schema.KindEnum, Variants: []string{"income", "expense"}, Required: true, Writable: true},
	{Name: "active", Kind: schema.KindBool, Writable: true},
	{Name: "priority", Kind: schema.KindInt, Writable: true},
	{Name: "weight", Kind: schema.KindFloat, Nullable: true, Writable: true},
	{Name: "note", Kind: schema.KindString, Nullable: true, Writable: true},
}, nil)

// builtins lists every shape served out of the box.
var builtins = []struct {
	collection string
	shape      *schema.Shape
}{
	{FinancialRecords, FinancialRecord},
	{Categories, Category},
}

// Register creates a collection per built-in shape on the backend and
// registers the adapters.
func Register(reg *registry.Registry, backend store.Backend) error {
	for _, b := range builtins {
		col, err := backend.Collection(b.collection, b.shape)
		if err != nil {
			return fmt.Errorf("opening collection %s: %w", b.collection, err)
		}
		if err := reg.Register(&registry.Adapter{
			Collection: b.collection,
			Shape:      b.shape,
			Store:      col,
		}); err != nil {
			return fmt.Errorf("registering %s: %w", b.collection, err)
		}
	}
	return nil
}
