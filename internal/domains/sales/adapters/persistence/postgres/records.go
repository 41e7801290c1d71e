package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

// productRecord maps the product aggregate to the products table.
type productRecord struct {
	ID        int64           `gorm:"primaryKey;column:id"`
	Name      string          `gorm:"column:name;size:255"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2)"`
	Stock     int             `gorm:"column:stock"`
	IsActive  bool            `gorm:"column:is_active"`
	ImageURLs pq.StringArray  `gorm:"column:image_urls;type:text[]"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

type orderRecord struct {
	ID          int64           `gorm:"primaryKey;column:id"`
	UserID      int64           `gorm:"column:user_id"`
	ProductID   int64           `gorm:"column:product_id"`
	Quantity    int             `gorm:"column:quantity"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2)"`
	Status      string          `gorm:"column:status"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (orderRecord) TableName() string { return "orders" }

type paymentRecord struct {
	ID             int64     `gorm:"primaryKey;column:id"`
	OrderID        int64     `gorm:"column:order_id"`
	Provider       string    `gorm:"column:provider"`
	Status         string    `gorm:"column:status"`
	TransactionRef string    `gorm:"column:transaction_ref"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (paymentRecord) TableName() string { return "payments" }

type outboxRecord struct {
	ID          string            `gorm:"primaryKey;column:id"`
	Topic       string            `gorm:"column:topic"`
	MessageKey  string            `gorm:"column:message_key"`
	EventType   string            `gorm:"column:event_type"`
	Payload     string            `gorm:"column:payload"`
	Headers     map[string]string `gorm:"column:headers;serializer:json"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
	PublishedAt *time.Time        `gorm:"column:published_at"`
}

func (outboxRecord) TableName() string { return "outbox_messages" }

func toProductRecord(p domain.Product) productRecord {
	urls := pq.StringArray{}
	if len(p.ImageURLs) > 0 {
		urls = append(urls, p.ImageURLs...)
	}
	return productRecord{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		IsActive:  p.IsActive,
		ImageURLs: urls,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r productRecord) toDomain() domain.Product {
	var urls []string
	if len(r.ImageURLs) > 0 {
		urls = append(urls, r.ImageURLs...)
	}
	return domain.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Stock:     r.Stock,
		IsActive:  r.IsActive,
		ImageURLs: urls,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toOrderRecord(o domain.Order) orderRecord {
	return orderRecord{
		ID:          o.ID,
		UserID:      o.UserID,
		ProductID:   o.ProductID,
		Quantity:    o.Quantity,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
}

func (r orderRecord) toDomain() domain.Order {
	return domain.Order{
		ID:          r.ID,
		UserID:      r.UserID,
		ProductID:   r.ProductID,
		Quantity:    r.Quantity,
		TotalAmount: r.TotalAmount,
		Status:      domain.OrderStatus(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}

func toPaymentRecord(p domain.Payment) paymentRecord {
	return paymentRecord{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Provider:       p.Provider,
		Status:         string(p.Status),
		TransactionRef: p.TransactionRef,
		CreatedAt:      p.CreatedAt,
	}
}

func (r paymentRecord) toDomain() domain.Payment {
	return domain.Payment{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Provider:       r.Provider,
		Status:         domain.PaymentStatus(r.Status),
		TransactionRef: r.TransactionRef,
		CreatedAt:      r.CreatedAt,
	}
}

func toOutboxRecord(msg ports.OutboxMessage) outboxRecord {
	return outboxRecord{
		ID:          msg.ID,
		Topic:       msg.Topic,
		MessageKey:  msg.Key,
		EventType:   msg.EventType,
		Payload:     string(msg.Payload),
		Headers:     msg.Headers,
		CreatedAt:   msg.CreatedAt,
		PublishedAt: msg.PublishedAt,
	}
}

func (r outboxRecord) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		ID:          r.ID,
		Topic:       r.Topic,
		Key:         r.MessageKey,
		EventType:   r.EventType,
		Payload:     []byte(r.Payload),
		Headers:     r.Headers,
		CreatedAt:   r.CreatedAt,
		PublishedAt: r.PublishedAt,
	}
}
