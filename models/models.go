package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound возвращается хранилищем, когда запись не найдена
var ErrNotFound = errors.New("record not found")

// MoneyScale - число знаков после запятой у bid_amount NUMERIC(12,2)
const MoneyScale = 2

// Money - денежная сумма. В JSON всегда строка с двумя знаками после запятой,
// как ее возвращает Postgres ("250.00").
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.StringFixed(MoneyScale))
}

// Статусы единицы е-отходов
const (
	ItemStatusAvailable = "available"
	ItemStatusBidding   = "bidding"
	ItemStatusSold      = "sold"
	ItemStatusRecycled  = "recycled"
)

// Статусы ставок
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// Сущность единицы е-отходов
type Item struct {
	ID            int64     `db:"id" json:"-"`
	UniqueID      string    `db:"unique_id" json:"unique_id"`
	Type          string    `db:"type" json:"type"`
	SerialNo      string    `db:"serial_no" json:"serial_no"`
	Dept          string    `db:"dept" json:"dept"`
	Status        string    `db:"status" json:"status"`
	CoordinatorID *int64    `db:"coordinator_id" json:"coordinator_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Сущность переработчика
type Recycler struct {
	ID          int64     `db:"id" json:"id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Сущность ставки
type Bid struct {
	ID         int64           `db:"id" json:"id"`
	ItemID     int64           `db:"ewaste_item_id" json:"ewaste_item_id"`
	RecyclerID int64           `db:"recycler_id" json:"recycler_id"`
	Amount     decimal.Decimal `db:"bid_amount" json:"bid_amount"`
	Status     string          `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// WinningBid - лучшая ставка по единице вместе с названием компании
type WinningBid struct {
	BidID        int64     `db:"id" json:"-"`
	Amount       Money     `db:"bid_amount" json:"amount"`
	RecyclerID   int64     `db:"recycler_id" json:"recyclerId"`
	RecyclerName string    `db:"company_name" json:"recyclerName"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
}

// ClosedItem - краткое описание проданной единицы для ответа админке
type ClosedItem struct {
	UniqueID string `json:"unique_id"`
	Type     string `json:"type"`
	SerialNo string `json:"serial_no"`
}

// CloseResult - итог закрытия торгов
type CloseResult struct {
	Item       ClosedItem
	WinningBid WinningBid
	PurgedBids int64
	ClosedAt   time.Time
}

// BiddingItem - строка списка единиц, доступных для торгов
type BiddingItem struct {
	UniqueID        string    `db:"unique_id" json:"unique_id"`
	Type            string    `db:"type" json:"type"`
	SerialNo        string    `db:"serial_no" json:"serial_no"`
	Dept            string    `db:"dept" json:"dept"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	HighestBid      Money     `db:"highest_bid" json:"highest_bid"`
	WinningRecycler *string   `db:"winning_recycler" json:"winning_recycler"`
	RecyclerID      *int64    `db:"recycler_id" json:"recycler_id"`
}

type TypeCount struct {
	Type  string `db:"type" json:"type"`
	Count int64  `db:"count" json:"count"`
}

// ItemStats - количество единиц по статусам
type ItemStats struct {
	TotalItems     int64 `db:"total_items" json:"total_items"`
	AvailableItems int64 `db:"available_items" json:"available_items"`
	ItemsInBidding int64 `db:"items_in_bidding" json:"items_in_bidding"`
	SoldItems      int64 `db:"sold_items" json:"sold_items"`
	RecycledItems  int64 `db:"recycled_items" json:"recycled_items"`
}

// BidStats - количество ставок по статусам и средняя сумма
type BidStats struct {
	TotalBids    int64   `db:"total_bids" json:"total_bids"`
	PendingBids  int64   `db:"pending_bids" json:"pending_bids"`
	AcceptedBids int64   `db:"accepted_bids" json:"accepted_bids"`
	AverageBid   float64 `db:"average_bid" json:"average_bid"`
}

type DashboardStats struct {
	Items ItemStats `json:"items"`
	Bids  BidStats  `json:"bids"`
}

// BidClosedEvent публикуется после успешного закрытия торгов.
// Получатели: победивший переработчик (NATS/Redis) и открытые дашборды админки (websocket).
type BidClosedEvent struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	ItemID       string    `json:"item_id"`
	ItemType     string    `json:"item_type"`
	SerialNo     string    `json:"serial_no"`
	RecyclerID   int64     `json:"recycler_id"`
	RecyclerName string    `json:"recycler_name"`
	Amount       Money     `json:"amount"`
	PurgedBids   int64     `json:"purged_bids"`
	ClosedAt     time.Time `json:"closed_at"`
}

const EventTypeBidClosed = "bid_closed"
