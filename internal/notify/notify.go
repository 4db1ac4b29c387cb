package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ewaste/models"
)

// Publisher доставляет событие о закрытии торгов
type Publisher interface {
	Publish(ctx context.Context, event *models.BidClosedEvent) error
}

// Multi рассылает событие всем получателям; ошибки объединяются
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event *models.BidClosedEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, *models.BidClosedEvent) error { return nil }

// Encode сериализует событие в JSON для шины
func Encode(event *models.BidClosedEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal bid closed event: %w", err)
	}
	return data, nil
}
