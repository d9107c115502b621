package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-crm/atelier-crm/internal/catalog"
	"github.com/atelier-crm/atelier-crm/internal/transactions"
)

const (
	statsCacheKey = "dashboard:stats"
	statsCacheTTL = time.Minute
	revenueWindow = 30 * 24 * time.Hour
)

// Stats is the headline figure block on the dashboard.
type Stats struct {
	Clients        int     `json:"clients"`
	Products       int     `json:"products"`
	Vendors        int     `json:"vendors"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
	LowStock       int     `json:"low_stock"`
}

// ActivityEntry is one row in the recent activity feed.
type ActivityEntry struct {
	Kind        string
	Description string
	Amount      float64
	OccurredAt  time.Time
}

// Counter exposes a total for a headline stat.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// CatalogSource adds the low-stock listing to plain counting.
type CatalogSource interface {
	Counter
	LowStock(ctx context.Context, limit int) ([]catalog.Product, error)
}

// TransactionSource feeds revenue and the activity list.
type TransactionSource interface {
	Recent(ctx context.Context, limit int) ([]transactions.Transaction, error)
	RevenueSince(ctx context.Context, since time.Time) (float64, error)
}

// Service aggregates dashboard figures across the other modules.
// Stats are cached in Redis for a minute since every staff member
// lands here after login.
type Service struct {
	logger   *slog.Logger
	cache    *redis.Client
	clients  Counter
	catalog  CatalogSource
	vendors  Counter
	ledger   TransactionSource
	now      func() time.Time
}

// NewService constructs a dashboard service.
func NewService(logger *slog.Logger, cache *redis.Client, clientCount Counter, cat CatalogSource, vendorCount Counter, ledger TransactionSource) *Service {
	return &Service{
		logger:  logger,
		cache:   cache,
		clients: clientCount,
		catalog: cat,
		vendors: vendorCount,
		ledger:  ledger,
		now:     time.Now,
	}
}

// Stats returns headline figures, served from cache when fresh.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var stats Stats
			if json.Unmarshal(cached, &stats) == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.computeStats(ctx)
	if err != nil {
		return Stats{}, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, encoded, statsCacheTTL).Err(); err != nil {
				s.logger.Warn("cache dashboard stats", slog.Any("error", err))
			}
		}
	}
	return stats, nil
}

func (s *Service) computeStats(ctx context.Context) (Stats, error) {
	var stats Stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.clients.Count(ctx)
		if err != nil {
			return fmt.Errorf("count clients: %w", err)
		}
		stats.Clients = n
		return nil
	})
	g.Go(func() error {
		n, err := s.catalog.Count(ctx)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		stats.Products = n
		return nil
	})
	g.Go(func() error {
		n, err := s.vendors.Count(ctx)
		if err != nil {
			return fmt.Errorf("count vendors: %w", err)
		}
		stats.Vendors = n
		return nil
	})
	g.Go(func() error {
		revenue, err := s.ledger.RevenueSince(ctx, s.now().Add(-revenueWindow))
		if err != nil {
			return fmt.Errorf("sum revenue: %w", err)
		}
		stats.MonthlyRevenue = revenue
		return nil
	})
	g.Go(func() error {
		low, err := s.catalog.LowStock(ctx, 100)
		if err != nil {
			return fmt.Errorf("list low stock: %w", err)
		}
		stats.LowStock = len(low)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// RecentActivity lists the latest ledger entries for the feed.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	recent, err := s.ledger.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	entries := make([]ActivityEntry, 0, len(recent))
	for _, tx := range recent {
		entries = append(entries, ActivityEntry{
			Kind:        string(tx.Type),
			Description: fmt.Sprintf("%s (%s)", tx.ClientName, tx.Status),
			Amount:      tx.Amount,
			OccurredAt:  tx.TransactionDate,
		})
	}
	return entries, nil
}
