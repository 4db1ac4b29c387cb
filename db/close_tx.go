package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ewaste/internal/bidding"
	"ewaste/models"

	"github.com/jmoiron/sqlx"
)

// BeginClose открывает транзакцию закрытия торгов на соединении из пула
func (s *Storage) BeginClose(ctx context.Context) (bidding.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &closeTx{tx: tx}, nil
}

type closeTx struct {
	tx *sqlx.Tx
}

// AvailableItem берет блокировку строки, конкурирующее закрытие ждет фиксации
// и после перечитывания уже не видит status = 'available'.
func (c *closeTx) AvailableItem(ctx context.Context, uniqueID string) (*models.Item, error) {
	item := &models.Item{}
	query := `
        SELECT id, unique_id, type, serial_no, dept, status
        FROM ewaste_items
        WHERE unique_id = $1 AND status = 'available'
        FOR UPDATE`
	if err := c.tx.GetContext(ctx, item, query, uniqueID); err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

func (c *closeTx) HighestPendingBid(ctx context.Context, itemID int64) (*models.WinningBid, error) {
	bid := &models.WinningBid{}
	query := `
        SELECT b.id, b.bid_amount, b.recycler_id, r.company_name, b.created_at
        FROM bids b
        JOIN recyclers r ON b.recycler_id = r.id
        WHERE b.ewaste_item_id = $1 AND b.status = 'pending'
        ORDER BY b.bid_amount DESC, b.created_at ASC, b.id ASC
        LIMIT 1`
	if err := c.tx.GetContext(ctx, bid, query, itemID); err != nil {
		return nil, notFound(err)
	}
	return bid, nil
}

// MarkSold обновляет строку только при status = 'available'
func (c *closeTx) MarkSold(ctx context.Context, itemID, recyclerID int64) (bool, error) {
	query := `
        UPDATE ewaste_items
        SET status = 'sold',
            coordinator_id = $1,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND status = 'available'`
	res, err := c.tx.ExecContext(ctx, query, recyclerID, itemID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (c *closeTx) DeleteBids(ctx context.Context, itemID int64) (int64, error) {
	query := `DELETE FROM bids WHERE ewaste_item_id = $1`
	res, err := c.tx.ExecContext(ctx, query, itemID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *closeTx) Commit() error {
	return c.tx.Commit()
}

func (c *closeTx) Rollback() error {
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
