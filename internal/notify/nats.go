package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"ewaste/models"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "bidding.closed"

// NATSPublisher публикует в subject "<prefix>.<unique_id>",
// переработчик подписывается на "bidding.closed.*"
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject строит subject из id. Разделитель токенов, wildcard-символы и пробелы
// заменяются на "_", чтобы id всегда занимал ровно один токен.
func (p *NATSPublisher) Subject(itemID string) string {
	return fmt.Sprintf("%s.%s", p.prefix, subjectToken(itemID))
}

func subjectToken(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '.', r == '*', r == '>', unicode.IsSpace(r):
			return '_'
		}
		return r
	}, id)
}

func (p *NATSPublisher) Publish(ctx context.Context, event *models.BidClosedEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.Subject(event.ItemID), data); err != nil {
		return fmt.Errorf("publish to nats: %w", err)
	}
	// Publish буферизует, FlushWithContext дожидается отправки на сервер
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}
