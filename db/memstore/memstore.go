// Package memstore - хранилище в памяти для транзакции закрытия торгов.
// Транзакции и наполнение данными выполняются строго по одному,
// изменения транзакции применяются только при Commit.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ewaste/internal/bidding"
	"ewaste/models"

	"github.com/shopspring/decimal"
)

// Имена шагов для FailOn
const (
	OpAvailableItem     = "available_item"
	OpHighestPendingBid = "highest_pending_bid"
	OpMarkSold          = "mark_sold"
	OpDeleteBids        = "delete_bids"
	OpCommit            = "commit"
)

var errTxDone = errors.New("memstore: transaction already finished")

type Store struct {
	sem chan struct{}

	mu        sync.Mutex
	items     map[int64]models.Item
	recyclers map[int64]models.Recycler
	bids      map[int64]models.Bid
	nextID    int64
	failures  map[string]error
	now       func() time.Time
}

func New() *Store {
	return &Store{
		sem:       make(chan struct{}, 1),
		items:     make(map[int64]models.Item),
		recyclers: make(map[int64]models.Recycler),
		bids:      make(map[int64]models.Bid),
		failures:  make(map[string]error),
		now:       time.Now,
	}
}

// FailOn заставляет шаг op вернуть err во всех следующих транзакциях.
// nil снимает отказ.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) AddRecycler(companyName string) int64 {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.recyclers[s.nextID] = models.Recycler{ID: s.nextID, CompanyName: companyName, CreatedAt: s.now()}
	return s.nextID
}

// AddItem сохраняет единицу; пустой статус становится available
func (s *Store) AddItem(item models.Item) int64 {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	if item.Status == "" {
		item.Status = models.ItemStatusAvailable
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	item.UpdatedAt = item.CreatedAt
	s.items[item.ID] = item
	return item.ID
}

// AddBid сохраняет ставку; нулевой createdAt заменяется текущим временем
func (s *Store) AddBid(itemID, recyclerID int64, amount decimal.Decimal, status string, createdAt time.Time) int64 {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	s.bids[s.nextID] = models.Bid{
		ID:         s.nextID,
		ItemID:     itemID,
		RecyclerID: recyclerID,
		Amount:     amount,
		Status:     status,
		CreatedAt:  createdAt,
	}
	return s.nextID
}

// Item возвращает зафиксированное состояние единицы
func (s *Store) Item(uniqueID string) (models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.UniqueID == uniqueID {
			return item, true
		}
	}
	return models.Item{}, false
}

// Bids возвращает зафиксированные ставки по единице, отсортированные по id
func (s *Store) Bids(itemID int64) []models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if b.ItemID == itemID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BeginClose ждет, пока завершится текущая транзакция, или отмены ctx
func (s *Store) BeginClose(ctx context.Context) (bidding.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{
		store:     s,
		items:     make(map[int64]models.Item, len(s.items)),
		bids:      make(map[int64]models.Bid, len(s.bids)),
		recyclers: make(map[int64]models.Recycler, len(s.recyclers)),
		failures:  make(map[string]error, len(s.failures)),
	}
	for id, item := range s.items {
		tx.items[id] = item
	}
	for id, b := range s.bids {
		tx.bids[id] = b
	}
	for id, r := range s.recyclers {
		tx.recyclers[id] = r
	}
	for op, err := range s.failures {
		tx.failures[op] = err
	}
	return tx, nil
}

type tx struct {
	store     *Store
	items     map[int64]models.Item
	bids      map[int64]models.Bid
	recyclers map[int64]models.Recycler
	failures  map[string]error
	done      bool
}

func (t *tx) check(ctx context.Context, op string) error {
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.failures[op]
}

func (t *tx) AvailableItem(ctx context.Context, uniqueID string) (*models.Item, error) {
	if err := t.check(ctx, OpAvailableItem); err != nil {
		return nil, err
	}
	for _, item := range t.items {
		if item.UniqueID == uniqueID && item.Status == models.ItemStatusAvailable {
			return &item, nil
		}
	}
	return nil, models.ErrNotFound
}

func (t *tx) HighestPendingBid(ctx context.Context, itemID int64) (*models.WinningBid, error) {
	if err := t.check(ctx, OpHighestPendingBid); err != nil {
		return nil, err
	}

	var best *models.Bid
	for id := range t.bids {
		b := t.bids[id]
		if b.ItemID != itemID || b.Status != models.BidStatusPending {
			continue
		}
		if _, ok := t.recyclers[b.RecyclerID]; !ok {
			// как INNER JOIN с recyclers
			continue
		}
		if best == nil || outranks(b, *best) {
			best = &b
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}

	return &models.WinningBid{
		BidID:        best.ID,
		Amount:       models.NewMoney(best.Amount),
		RecyclerID:   best.RecyclerID,
		RecyclerName: t.recyclers[best.RecyclerID].CompanyName,
		CreatedAt:    best.CreatedAt,
	}, nil
}

// outranks: сумма по убыванию, затем более ранняя ставка, затем меньший id
func outranks(a, b models.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (t *tx) MarkSold(ctx context.Context, itemID, recyclerID int64) (bool, error) {
	if err := t.check(ctx, OpMarkSold); err != nil {
		return false, err
	}
	item, ok := t.items[itemID]
	if !ok || item.Status != models.ItemStatusAvailable {
		return false, nil
	}
	item.Status = models.ItemStatusSold
	item.CoordinatorID = &recyclerID
	item.UpdatedAt = t.store.now()
	t.items[itemID] = item
	return true, nil
}

func (t *tx) DeleteBids(ctx context.Context, itemID int64) (int64, error) {
	if err := t.check(ctx, OpDeleteBids); err != nil {
		return 0, err
	}
	var n int64
	for id, b := range t.bids {
		if b.ItemID == itemID {
			delete(t.bids, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}
	if err := t.failures[OpCommit]; err != nil {
		t.finish()
		return err
	}

	t.store.mu.Lock()
	t.store.items = t.items
	t.store.bids = t.bids
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	<-t.store.sem
}
