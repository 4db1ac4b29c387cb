package bidding_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ewaste/db/memstore"
	"ewaste/internal/bidding"
	"ewaste/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.BidClosedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *models.BidClosedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []*models.BidClosedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.BidClosedEvent(nil), p.events...)
}

type fixture struct {
	store    *memstore.Store
	itemID   int64
	alpha    int64
	beta     int64
	alphaBid int64
	betaBid  int64
}

// seed: X1 доступна, ставки A=100 и B=250
func seed(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	f := fixture{store: store}
	f.alpha = store.AddRecycler("Alpha Recycling")
	f.beta = store.AddRecycler("Beta Metals")
	f.itemID = store.AddItem(models.Item{UniqueID: "X1", Type: "Laptop", SerialNo: "SN-001", Dept: "CSE"})
	f.alphaBid = store.AddBid(f.itemID, f.alpha, decimal.NewFromInt(100), models.BidStatusPending, time.Time{})
	f.betaBid = store.AddBid(f.itemID, f.beta, decimal.NewFromInt(250), models.BidStatusPending, time.Time{})
	return f
}

func TestCloseBiddingAssignsHighestBidder(t *testing.T) {
	f := seed(t)
	pub := &recordingPublisher{}
	svc := bidding.NewService(f.store, pub, time.Second)

	res, err := svc.CloseBidding(context.Background(), "X1")
	require.NoError(t, err)

	require.Equal(t, "X1", res.Item.UniqueID)
	require.Equal(t, "Laptop", res.Item.Type)
	require.Equal(t, "SN-001", res.Item.SerialNo)
	require.True(t, res.WinningBid.Amount.Equal(decimal.NewFromInt(250)))
	require.Equal(t, "Beta Metals", res.WinningBid.RecyclerName)
	require.Equal(t, f.beta, res.WinningBid.RecyclerID)
	require.Equal(t, int64(2), res.PurgedBids)

	item, ok := f.store.Item("X1")
	require.True(t, ok)
	require.Equal(t, models.ItemStatusSold, item.Status)
	require.NotNil(t, item.CoordinatorID)
	require.Equal(t, f.beta, *item.CoordinatorID)
	require.Empty(t, f.store.Bids(f.itemID))

	events := pub.Events()
	require.Len(t, events, 1)
	require.Equal(t, models.EventTypeBidClosed, events[0].Type)
	require.Equal(t, "X1", events[0].ItemID)
	require.Equal(t, f.beta, events[0].RecyclerID)
	require.NotEmpty(t, events[0].EventID)
}

func TestCloseBiddingTwiceRejectsSecondCall(t *testing.T) {
	f := seed(t)
	svc := bidding.NewService(f.store, nil, time.Second)

	_, err := svc.CloseBidding(context.Background(), "X1")
	require.NoError(t, err)

	_, err = svc.CloseBidding(context.Background(), "X1")
	require.ErrorIs(t, err, bidding.ErrItemNotEligible)

	item, _ := f.store.Item("X1")
	require.Equal(t, f.beta, *item.CoordinatorID)
}

func TestCloseBiddingNoBids(t *testing.T) {
	store := memstore.New()
	store.AddRecycler("Alpha Recycling")
	itemID := store.AddItem(models.Item{UniqueID: "X2", Type: "Monitor", SerialNo: "SN-002", Dept: "ECE"})
	pub := &recordingPublisher{}
	svc := bidding.NewService(store, pub, time.Second)

	_, err := svc.CloseBidding(context.Background(), "X2")
	require.ErrorIs(t, err, bidding.ErrNoBidsFound)

	item, ok := store.Item("X2")
	require.True(t, ok)
	require.Equal(t, models.ItemStatusAvailable, item.Status)
	require.Nil(t, item.CoordinatorID)
	require.Empty(t, store.Bids(itemID))
	require.Empty(t, pub.Events())
}

func TestCloseBiddingIgnoresNonPendingBids(t *testing.T) {
	store := memstore.New()
	r := store.AddRecycler("Alpha Recycling")
	itemID := store.AddItem(models.Item{UniqueID: "X3", Type: "Printer", SerialNo: "SN-003", Dept: "ME"})
	store.AddBid(itemID, r, decimal.NewFromInt(900), models.BidStatusRejected, time.Time{})
	svc := bidding.NewService(store, nil, time.Second)

	_, err := svc.CloseBidding(context.Background(), "X3")
	require.ErrorIs(t, err, bidding.ErrNoBidsFound)
	require.Len(t, store.Bids(itemID), 1)
}

func TestCloseBiddingUnknownOrIneligibleItem(t *testing.T) {
	f := seed(t)
	sold := f.store.AddItem(models.Item{UniqueID: "S1", Type: "Phone", SerialNo: "SN-100", Dept: "CSE", Status: models.ItemStatusSold})
	f.store.AddBid(sold, f.alpha, decimal.NewFromInt(50), models.BidStatusPending, time.Time{})
	svc := bidding.NewService(f.store, nil, time.Second)

	// id сравнивается точно: " X1 " не должен закрыть X1
	for _, id := range []string{"X9", "", "   ", "S1", " X1 ", "X1\t", "x1"} {
		_, err := svc.CloseBidding(context.Background(), id)
		require.ErrorIs(t, err, bidding.ErrItemNotEligible, "id %q", id)
	}

	require.Len(t, f.store.Bids(f.itemID), 2)
	require.Len(t, f.store.Bids(sold), 1)
	item, _ := f.store.Item("X1")
	require.Equal(t, models.ItemStatusAvailable, item.Status)
}

func TestCloseBiddingTieBreak(t *testing.T) {
	store := memstore.New()
	early := store.AddRecycler("Early Bird")
	late := store.AddRecycler("Late Comer")
	itemID := store.AddItem(models.Item{UniqueID: "T1", Type: "Server", SerialNo: "SN-T1", Dept: "IT"})

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	store.AddBid(itemID, late, decimal.RequireFromString("300.00"), models.BidStatusPending, base.Add(time.Minute))
	store.AddBid(itemID, early, decimal.RequireFromString("300"), models.BidStatusPending, base)
	svc := bidding.NewService(store, nil, time.Second)

	res, err := svc.CloseBidding(context.Background(), "T1")
	require.NoError(t, err)
	require.Equal(t, early, res.WinningBid.RecyclerID)
}

func TestCloseBiddingTieBreakSameTimestampUsesLowestID(t *testing.T) {
	store := memstore.New()
	first := store.AddRecycler("First")
	second := store.AddRecycler("Second")
	itemID := store.AddItem(models.Item{UniqueID: "T2", Type: "Server", SerialNo: "SN-T2", Dept: "IT"})

	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	store.AddBid(itemID, first, decimal.NewFromInt(10), models.BidStatusPending, at)
	store.AddBid(itemID, second, decimal.NewFromInt(10), models.BidStatusPending, at)
	svc := bidding.NewService(store, nil, time.Second)

	res, err := svc.CloseBidding(context.Background(), "T2")
	require.NoError(t, err)
	require.Equal(t, first, res.WinningBid.RecyclerID)
}

func TestCloseBiddingRollsBackOnStoreFailure(t *testing.T) {
	steps := []string{
		memstore.OpAvailableItem,
		memstore.OpHighestPendingBid,
		memstore.OpMarkSold,
		memstore.OpDeleteBids,
		memstore.OpCommit,
	}

	for _, op := range steps {
		t.Run(op, func(t *testing.T) {
			f := seed(t)
			boom := errors.New("connection reset")
			f.store.FailOn(op, boom)
			pub := &recordingPublisher{}
			svc := bidding.NewService(f.store, pub, time.Second)

			_, err := svc.CloseBidding(context.Background(), "X1")
			require.ErrorIs(t, err, bidding.ErrInternal)
			require.ErrorIs(t, err, boom)

			item, _ := f.store.Item("X1")
			require.Equal(t, models.ItemStatusAvailable, item.Status)
			require.Nil(t, item.CoordinatorID)
			require.Len(t, f.store.Bids(f.itemID), 2)
			require.Empty(t, pub.Events())

			// соединение освобождено: следующая попытка проходит
			f.store.FailOn(op, nil)
			_, err = svc.CloseBidding(context.Background(), "X1")
			require.NoError(t, err)
		})
	}
}

func TestCloseBiddingPublishFailureDoesNotFailClose(t *testing.T) {
	f := seed(t)
	pub := &recordingPublisher{err: errors.New("nats: no responders")}
	svc := bidding.NewService(f.store, pub, time.Second)

	res, err := svc.CloseBidding(context.Background(), "X1")
	require.NoError(t, err)
	require.Equal(t, "X1", res.Item.UniqueID)
	require.Len(t, pub.Events(), 1)
}

func TestCloseBiddingTimeoutWhileWaitingForLock(t *testing.T) {
	f := seed(t)

	held, err := f.store.BeginClose(context.Background())
	require.NoError(t, err)
	defer held.Rollback()

	svc := bidding.NewService(f.store, nil, 20*time.Millisecond)
	_, err = svc.CloseBidding(context.Background(), "X1")
	require.ErrorIs(t, err, bidding.ErrInternal)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseBiddingConcurrentRace(t *testing.T) {
	f := seed(t)
	svc := bidding.NewService(f.store, nil, 5*time.Second)

	const attempts = 8
	var (
		wg          sync.WaitGroup
		successes   atomic.Int32
		notEligible atomic.Int32
		start       = make(chan struct{})
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.CloseBidding(context.Background(), "X1")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, bidding.ErrItemNotEligible):
				notEligible.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), successes.Load())
	require.Equal(t, int32(attempts-1), notEligible.Load())

	item, _ := f.store.Item("X1")
	require.Equal(t, models.ItemStatusSold, item.Status)
	require.Equal(t, f.beta, *item.CoordinatorID)
	require.Empty(t, f.store.Bids(f.itemID))
}
