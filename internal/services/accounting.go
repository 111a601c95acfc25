package services

import (
	"context"
	"math"

	"github.com/diewo77/go-inventario/internal/models"
	"github.com/diewo77/go-inventario/internal/store"
)

// Summary aggregates an owner's sales.
type Summary struct {
	Sales    int
	Units    int
	Revenue  float64
	ByMethod map[models.PaymentMethod]float64
}

// MethodTotal is one line of Summary.Methods.
type MethodTotal struct {
	Method models.PaymentMethod
	Total  float64
}

// Methods returns the per method revenue in display order.
func (s Summary) Methods() []MethodTotal {
	out := make([]MethodTotal, 0, len(models.PaymentMethods))
	for _, m := range models.PaymentMethods {
		out = append(out, MethodTotal{Method: m, Total: s.ByMethod[m]})
	}
	return out
}

// Overview feeds the home page.
type Overview struct {
	Clients   int64
	Suppliers int64
	Products  int64
	Summary   Summary
	Recent    []models.Sale
}

// Accounting computes read-only figures over the store.
type Accounting struct {
	store *store.Store
}

func NewAccounting(s *store.Store) *Accounting {
	return &Accounting{store: s}
}

// Summarize totals stored sale prices; totals are never recomputed.
func Summarize(sales []models.Sale) Summary {
	sum := Summary{ByMethod: make(map[models.PaymentMethod]float64, len(models.PaymentMethods))}
	for _, s := range sales {
		sum.Sales++
		sum.Units += s.Quantity
		sum.Revenue += s.TotalPrice
		sum.ByMethod[s.PaymentMethod] += s.TotalPrice
	}
	sum.Revenue = round2(sum.Revenue)
	for k, v := range sum.ByMethod {
		sum.ByMethod[k] = round2(v)
	}
	return sum
}

// Summary loads the owner's sales and summarises them.
func (a *Accounting) Summary(ctx context.Context, owner uint) (Summary, []models.Sale, error) {
	sales, err := a.store.Sales.Select(ctx, owner)
	if err != nil {
		return Summary{}, nil, err
	}
	return Summarize(sales), sales, nil
}

// Overview gathers the counts shown on the home page with the most recent
// sales, newest first.
func (a *Accounting) Overview(ctx context.Context, owner uint, recent int) (*Overview, error) {
	var (
		o   Overview
		err error
	)
	if o.Clients, err = a.store.Clients.Count(ctx, owner); err != nil {
		return nil, err
	}
	if o.Suppliers, err = a.store.Suppliers.Count(ctx, owner); err != nil {
		return nil, err
	}
	if o.Products, err = a.store.Products.Count(ctx, owner); err != nil {
		return nil, err
	}
	sum, sales, err := a.Summary(ctx, owner)
	if err != nil {
		return nil, err
	}
	o.Summary = sum
	if len(sales) > recent {
		sales = sales[:recent]
	}
	o.Recent = sales
	return &o, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
