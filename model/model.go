// Package model 定义 shopsync 同步的店铺领域对象。
//
// 同一个结构体同时用于远端 JSON 载荷和本地 GORM 持久化，不做额外的实体映射。
// 金额以最小货币单位（里亚尔）的整数表示。
package model

import (
	"time"
)

// Product 商品
type Product struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id" msgpack:"id"`
	Name        string    `gorm:"size:200;not null" json:"name" msgpack:"name"`
	Description string    `gorm:"type:text" json:"description" msgpack:"description"`
	Category    string    `gorm:"size:64;index" json:"category" msgpack:"category"`
	Price       int64     `gorm:"not null" json:"price" msgpack:"price"`
	WeightGrams float64   `json:"weight_grams" msgpack:"weight_grams"`
	Purity      int       `json:"purity" msgpack:"purity"` // 银饰纯度，如 925
	Stock       int       `json:"stock" msgpack:"stock"`
	ImageURL    string    `gorm:"size:500" json:"image_url" msgpack:"image_url"`
	UpdatedAt   time.Time `json:"updated_at" msgpack:"updated_at"`
}

// InStock 是否有货
func (p Product) InStock() bool {
	return p.Stock > 0
}

// CartItem 购物车条目，每个商品一行
type CartItem struct {
	ProductID string    `gorm:"primaryKey;size:64" json:"product_id" msgpack:"product_id"`
	Name      string    `gorm:"size:200" json:"name" msgpack:"name"`
	Quantity  int       `gorm:"not null" json:"quantity" msgpack:"quantity"`
	UnitPrice int64     `gorm:"not null" json:"unit_price" msgpack:"unit_price"`
	AddedAt   time.Time `json:"added_at" msgpack:"added_at"`
}

// Subtotal 条目小计
func (c CartItem) Subtotal() int64 {
	return int64(c.Quantity) * c.UnitPrice
}

// CartTotal 购物车总额
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCanceled  OrderStatus = "canceled"
)

// OrderItem 订单行
type OrderItem struct {
	ProductID string `json:"product_id" msgpack:"product_id"`
	Name      string `json:"name" msgpack:"name"`
	Quantity  int    `json:"quantity" msgpack:"quantity"`
	UnitPrice int64  `json:"unit_price" msgpack:"unit_price"`
}

// Order 订单，订单行以 JSON 列存储
type Order struct {
	ID        string      `gorm:"primaryKey;size:64" json:"id" msgpack:"id"`
	Status    OrderStatus `gorm:"size:32;index" json:"status" msgpack:"status"`
	Items     []OrderItem `gorm:"serializer:json" json:"items" msgpack:"items"`
	Total     int64       `json:"total" msgpack:"total"`
	Address   string      `gorm:"type:text" json:"address" msgpack:"address"`
	CreatedAt time.Time   `gorm:"index" json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" msgpack:"updated_at"`
}

// OrderRequest 下单请求
type OrderRequest struct {
	Address string `json:"address"`
}

// WishlistItem 心愿单条目，存放在 KV 缓存中
type WishlistItem struct {
	ProductID string    `json:"product_id" msgpack:"product_id"`
	AddedAt   time.Time `json:"added_at" msgpack:"added_at"`
}

// Models 需要建表的 GORM 模型
func Models() []any {
	return []any{&Product{}, &CartItem{}, &Order{}}
}
