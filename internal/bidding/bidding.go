package bidding

import (
	"context"
	"errors"

	"ewaste/models"
)

var (
	// ErrItemNotEligible - единица не найдена или уже не в статусе available
	ErrItemNotEligible = errors.New("item not found or not in bidding status")
	// ErrNoBidsFound - по единице нет ни одной ставки в статусе pending
	ErrNoBidsFound = errors.New("no bids found for this item")
	// ErrInternal оборачивает любые ошибки хранилища
	ErrInternal = errors.New("internal failure")
)

// Tx - одна транзакция закрытия торгов. Методы выполняются последовательно
// в рамках одной транзакции хранилища.
type Tx interface {
	// AvailableItem блокирует и возвращает единицу в статусе available.
	// Если такой нет, возвращает models.ErrNotFound.
	AvailableItem(ctx context.Context, uniqueID string) (*models.Item, error)
	// HighestPendingBid возвращает старшую pending-ставку или models.ErrNotFound.
	HighestPendingBid(ctx context.Context, itemID int64) (*models.WinningBid, error)
	// MarkSold переводит единицу в sold, только если она всё ещё available.
	// false означает, что обновлено ноль строк.
	MarkSold(ctx context.Context, itemID, recyclerID int64) (bool, error)
	// DeleteBids удаляет все ставки по единице и возвращает их количество.
	DeleteBids(ctx context.Context, itemID int64) (int64, error)
	Commit() error
	// Rollback после Commit безопасен и ничего не делает.
	Rollback() error
}

// TxBeginner открывает транзакции закрытия торгов
type TxBeginner interface {
	BeginClose(ctx context.Context) (Tx, error)
}

// Publisher получает событие после фиксации транзакции
type Publisher interface {
	Publish(ctx context.Context, event *models.BidClosedEvent) error
}
