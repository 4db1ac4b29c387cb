package handlers

import (
	"context"

	"ewaste/models"
)

// StorageInterface - чтения, нужные админке. Реализуется db.Storage.
type StorageInterface interface {
	Ping(ctx context.Context) error
	ListBiddingItems(ctx context.Context) ([]models.BiddingItem, error)
	ItemsByType(ctx context.Context) ([]models.TypeCount, error)
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// BidCloser закрывает торги. Реализуется bidding.Service.
type BidCloser interface {
	CloseBidding(ctx context.Context, uniqueID string) (*models.CloseResult, error)
}
