package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ewaste/models"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListBiddingItems возвращает доступные единицы со старшей ставкой и предварительным победителем.
// Победитель выбирается по тем же правилам, что и при закрытии торгов.
func (s *Storage) ListBiddingItems(ctx context.Context) ([]models.BiddingItem, error) {
	query := `
        SELECT
            ei.unique_id,
            ei.type,
            ei.serial_no,
            ei.dept,
            ei.status,
            ei.created_at,
            COALESCE(top.bid_amount, 0) AS highest_bid,
            top.company_name AS winning_recycler,
            top.recycler_id AS recycler_id
        FROM ewaste_items ei
        LEFT JOIN LATERAL (
            SELECT b.bid_amount, b.recycler_id, r.company_name
            FROM bids b
            JOIN recyclers r ON r.id = b.recycler_id
            WHERE b.ewaste_item_id = ei.id AND b.status = 'pending'
            ORDER BY b.bid_amount DESC, b.created_at ASC, b.id ASC
            LIMIT 1
        ) top ON TRUE
        WHERE ei.status = 'available'
        ORDER BY ei.created_at DESC`
	items := []models.BiddingItem{}
	if err := s.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("select bidding items: %w", err)
	}
	return items, nil
}

func (s *Storage) ItemsByType(ctx context.Context) ([]models.TypeCount, error) {
	query := `
        SELECT type, COUNT(*) AS count
        FROM ewaste_items
        GROUP BY type
        ORDER BY count DESC, type ASC`
	stats := []models.TypeCount{}
	if err := s.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("select items by type: %w", err)
	}
	return stats, nil
}

func (s *Storage) ItemStats(ctx context.Context) (models.ItemStats, error) {
	var stats models.ItemStats
	query := `
        SELECT
            COUNT(*) AS total_items,
            COUNT(*) FILTER (WHERE status = 'available') AS available_items,
            COUNT(*) FILTER (WHERE status = 'bidding') AS items_in_bidding,
            COUNT(*) FILTER (WHERE status = 'sold') AS sold_items,
            COUNT(*) FILTER (WHERE status = 'recycled') AS recycled_items
        FROM ewaste_items`
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return stats, fmt.Errorf("select item stats: %w", err)
	}
	return stats, nil
}

func (s *Storage) BidStats(ctx context.Context) (models.BidStats, error) {
	var stats models.BidStats
	query := `
        SELECT
            COUNT(*) AS total_bids,
            COUNT(*) FILTER (WHERE status = 'pending') AS pending_bids,
            COUNT(*) FILTER (WHERE status = 'accepted') AS accepted_bids,
            COALESCE(AVG(bid_amount), 0)::float8 AS average_bid
        FROM bids`
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return stats, fmt.Errorf("select bid stats: %w", err)
	}
	return stats, nil
}

// DashboardStats выполняет оба агрегата параллельно
func (s *Storage) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.ItemStats(gctx)
		out.Items = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.BidStats(gctx)
		out.Bids = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}
