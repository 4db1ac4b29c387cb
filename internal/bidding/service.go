package bidding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ewaste/models"

	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// Service закрывает торги по единице е-отходов
type Service struct {
	store     TxBeginner
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

// NewService создает Service. publisher может быть nil; timeout <= 0 отключает ограничение.
func NewService(store TxBeginner, publisher Publisher, timeout time.Duration) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		timeout:   timeout,
		now:       time.Now,
	}
}

// CloseBidding назначает единицу переработчику со старшей pending-ставкой
// и удаляет все ставки по ней. Либо всё, либо ничего.
func (s *Service) CloseBidding(ctx context.Context, uniqueID string) (*models.CloseResult, error) {
	// id сравнивается точно, пробелы не обрезаются
	if strings.TrimSpace(uniqueID) == "" {
		return nil, ErrItemNotEligible
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.closeInTx(ctx, uniqueID)
	if err != nil {
		return nil, err
	}

	slog.Info("bidding closed",
		"item", result.Item.UniqueID,
		"recycler_id", result.WinningBid.RecyclerID,
		"recycler", result.WinningBid.RecyclerName,
		"amount", result.WinningBid.Amount.StringFixed(models.MoneyScale),
		"purged_bids", result.PurgedBids,
	)

	s.publish(result)
	return result, nil
}

func (s *Service) closeInTx(ctx context.Context, uniqueID string) (*models.CloseResult, error) {
	tx, err := s.store.BeginClose(ctx)
	if err != nil {
		return nil, internal("begin transaction", err)
	}
	// После Commit откат ничего не делает, соединение освобождается на любом пути
	defer tx.Rollback()

	item, err := tx.AvailableItem(ctx, uniqueID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrItemNotEligible
	}
	if err != nil {
		return nil, internal("load item", err)
	}

	bid, err := tx.HighestPendingBid(ctx, item.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrNoBidsFound
	}
	if err != nil {
		return nil, internal("load highest bid", err)
	}

	updated, err := tx.MarkSold(ctx, item.ID, bid.RecyclerID)
	if err != nil {
		return nil, internal("mark item sold", err)
	}
	if !updated {
		return nil, ErrItemNotEligible
	}

	purged, err := tx.DeleteBids(ctx, item.ID)
	if err != nil {
		return nil, internal("delete bids", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, internal("commit", err)
	}

	return &models.CloseResult{
		Item: models.ClosedItem{
			UniqueID: item.UniqueID,
			Type:     item.Type,
			SerialNo: item.SerialNo,
		},
		WinningBid: *bid,
		PurgedBids: purged,
		ClosedAt:   s.now().UTC(),
	}, nil
}

// publish не влияет на результат: транзакция уже зафиксирована
func (s *Service) publish(result *models.CloseResult) {
	if s.publisher == nil {
		return
	}

	event := &models.BidClosedEvent{
		EventID:      uuid.New().String(),
		Type:         models.EventTypeBidClosed,
		ItemID:       result.Item.UniqueID,
		ItemType:     result.Item.Type,
		SerialNo:     result.Item.SerialNo,
		RecyclerID:   result.WinningBid.RecyclerID,
		RecyclerName: result.WinningBid.RecyclerName,
		Amount:       result.WinningBid.Amount,
		PurgedBids:   result.PurgedBids,
		ClosedAt:     result.ClosedAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish bid closed event",
			"item", event.ItemID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}

func internal(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, step, err)
}
