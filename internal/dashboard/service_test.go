package dashboard

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-crm/atelier-crm/internal/catalog"
	_ "github.com/atelier-crm/atelier-crm/internal/testing/guard"
	"github.com/atelier-crm/atelier-crm/internal/transactions"
)

type fixedCounter struct {
	count int
	calls int
}

func (f *fixedCounter) Count(_ context.Context) (int, error) {
	f.calls++
	return f.count, nil
}

type stubCatalog struct {
	fixedCounter
	low []catalog.Product
}

func (s *stubCatalog) LowStock(_ context.Context, _ int) ([]catalog.Product, error) {
	return s.low, nil
}

type stubLedger struct {
	recent  []transactions.Transaction
	revenue float64
}

func (s *stubLedger) Recent(_ context.Context, _ int) ([]transactions.Transaction, error) {
	return s.recent, nil
}

func (s *stubLedger) RevenueSince(_ context.Context, _ time.Time) (float64, error) {
	return s.revenue, nil
}

func newTestCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestStatsAggregatesSources(t *testing.T) {
	clientCount := &fixedCounter{count: 12}
	cat := &stubCatalog{fixedCounter: fixedCounter{count: 40}, low: []catalog.Product{{}, {}}}
	vendorCount := &fixedCounter{count: 3}
	ledger := &stubLedger{revenue: 15750.50}
	svc := NewService(slog.Default(), newTestCache(t), clientCount, cat, vendorCount, ledger)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Clients)
	assert.Equal(t, 40, stats.Products)
	assert.Equal(t, 3, stats.Vendors)
	assert.Equal(t, 2, stats.LowStock)
	assert.InDelta(t, 15750.50, stats.MonthlyRevenue, 0.001)
}

func TestStatsServedFromCache(t *testing.T) {
	clientCount := &fixedCounter{count: 1}
	cat := &stubCatalog{fixedCounter: fixedCounter{count: 1}}
	vendorCount := &fixedCounter{count: 1}
	svc := NewService(slog.Default(), newTestCache(t), clientCount, cat, vendorCount, &stubLedger{})

	_, err := svc.Stats(context.Background())
	require.NoError(t, err)
	_, err = svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, clientCount.calls)
}

func TestRecentActivityDescribesTransactions(t *testing.T) {
	when := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	ledger := &stubLedger{recent: []transactions.Transaction{{
		Type:            transactions.TypeSale,
		Status:          transactions.StatusCompleted,
		ClientName:      "Maya Lindgren",
		Amount:          899,
		TransactionDate: when,
	}}}
	svc := NewService(slog.Default(), newTestCache(t), &fixedCounter{}, &stubCatalog{}, &fixedCounter{}, ledger)

	entries, err := svc.RecentActivity(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sale", entries[0].Kind)
	assert.Equal(t, "Maya Lindgren (completed)", entries[0].Description)
	assert.Equal(t, when, entries[0].OccurredAt)
}
