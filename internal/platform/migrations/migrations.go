package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Adapters never migrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&userRecord{},
		&productRecord{},
		&orderRecord{},
		&paymentRecord{},
		&outboxRecord{},
		&idempotencyRecord{},
	)
}

// User schema mirrors the users Postgres adapter.
type userRecord struct {
	ID           int64     `gorm:"primaryKey;column:id"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

// Product schema mirrors the sales Postgres adapter. The stock check is the
// last line of defence against overselling.
type productRecord struct {
	ID        int64           `gorm:"primaryKey;column:id"`
	Name      string          `gorm:"column:name;size:255;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null;check:chk_products_price,price > 0"`
	Stock     int             `gorm:"column:stock;not null;check:chk_products_stock,stock >= 0"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true;index"`
	ImageURLs pq.StringArray  `gorm:"column:image_urls;type:text[]"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

type orderRecord struct {
	ID          int64           `gorm:"primaryKey;column:id"`
	UserID      int64           `gorm:"column:user_id;not null;index"`
	ProductID   int64           `gorm:"column:product_id;not null;index"`
	Quantity    int             `gorm:"column:quantity;not null;check:chk_orders_quantity,quantity > 0"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null;check:chk_orders_total,total_amount >= 0"`
	Status      string          `gorm:"column:status;type:varchar(16);not null;check:chk_orders_status,status IN ('PENDING','PAID','FAILED')"`
	CreatedAt   time.Time       `gorm:"column:created_at;index"`

	User    userRecord    `gorm:"foreignKey:UserID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Product productRecord `gorm:"foreignKey:ProductID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (orderRecord) TableName() string { return "orders" }

type paymentRecord struct {
	ID             int64     `gorm:"primaryKey;column:id"`
	OrderID        int64     `gorm:"column:order_id;not null;index"`
	Provider       string    `gorm:"column:provider;size:64;not null"`
	Status         string    `gorm:"column:status;type:varchar(16);not null;check:chk_payments_status,status IN ('SUCCESS','FAILED')"`
	TransactionRef string    `gorm:"column:transaction_ref;size:255"`
	CreatedAt      time.Time `gorm:"column:created_at"`

	Order orderRecord `gorm:"foreignKey:OrderID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (paymentRecord) TableName() string { return "payments" }

type outboxRecord struct {
	ID          string     `gorm:"primaryKey;column:id;size:36"`
	Topic       string     `gorm:"column:topic;size:255;not null"`
	MessageKey  string     `gorm:"column:message_key;size:255"`
	EventType   string     `gorm:"column:event_type;size:128;not null"`
	Payload     string     `gorm:"column:payload;type:text;not null"`
	Headers     string     `gorm:"column:headers;type:text"`
	CreatedAt   time.Time  `gorm:"column:created_at;index"`
	PublishedAt *time.Time `gorm:"column:published_at;index"`
}

func (outboxRecord) TableName() string { return "outbox_messages" }

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128;not null"`
	OrderID     int64     `gorm:"column:order_id;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }
