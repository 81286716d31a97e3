// Package store 是 shopsync 的本地持久缓存：
// 商品、购物车、订单存放在 SQLite（GORM），心愿单存放在 KV 缓存。
//
// 读取方法在数据缺失时返回零值而不是错误，便于资源协调器把“缺失”当作普通的本地值处理。
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noghresod/shopsync/cache/serializer"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/db"
	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/xerrors"
)

// Relational SQLite 中的商品、购物车和订单
type Relational interface {
	Products(ctx context.Context) ([]model.Product, error)
	// Product 不存在时返回零值
	Product(ctx context.Context, id string) (model.Product, error)
	// ReplaceProducts 用远端列表整体替换本地商品
	ReplaceProducts(ctx context.Context, products []model.Product) error
	UpsertProduct(ctx context.Context, p model.Product) error
	DeleteProducts(ctx context.Context, ids ...string) error

	Cart(ctx context.Context) ([]model.CartItem, error)
	ReplaceCart(ctx context.Context, items []model.CartItem) error
	UpsertCartItem(ctx context.Context, item model.CartItem) error
	DeleteCartItem(ctx context.Context, productID string) error

	// Orders 按创建时间倒序
	Orders(ctx context.Context) ([]model.Order, error)
	Order(ctx context.Context, id string) (model.Order, error)
	ReplaceOrders(ctx context.Context, orders []model.Order) error
	UpsertOrder(ctx context.Context, o model.Order) error
	DeleteOrders(ctx context.Context, ids ...string) error
}

// ErrStorage 本地存储失败
var ErrStorage = xerrors.WithCode(xerrors.New("store: storage failure"), xerrors.CodeStorage)

type relational struct {
	db     db.DB
	logger clog.Logger
}

// NewRelational 创建关系型存储并同步表结构
func NewRelational(ctx context.Context, database db.DB, opts ...Option) (Relational, error) {
	o := applyOptions(opts...)
	if err := database.AutoMigrate(ctx, model.Models()...); err != nil {
		return nil, err
	}
	return &relational{db: database, logger: o.logger}, nil
}

func storageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return xerrors.Wrapf(xerrors.Combine(ErrStorage, err), "store: %s", op)
}

func notFoundAsZero(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// --- 商品 ---

func (s *relational) Products(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := s.db.DB(ctx).Order("id").Find(&out).Error
	return out, storageErr(err, "list products")
}

func (s *relational) Product(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	err := s.db.DB(ctx).Where("id = ?", id).Take(&p).Error
	if err = notFoundAsZero(err); err != nil {
		return model.Product{}, storageErr(err, "get product")
	}
	return p, nil
}

func (s *relational) ReplaceProducts(ctx context.Context, products []model.Product) error {
	err := s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return replaceAll(tx, &model.Product{}, products, func(p model.Product) string { return p.ID })
	})
	if err == nil {
		s.logger.Debug("products replaced", clog.Int("count", len(products)))
	}
	return storageErr(err, "replace products")
}

func (s *relational) UpsertProduct(ctx context.Context, p model.Product) error {
	return storageErr(upsert(s.db.DB(ctx), &p), "upsert product")
}

func (s *relational) DeleteProducts(ctx context.Context, ids ...string) error {
	return storageErr(deleteByID(s.db.DB(ctx), &model.Product{}, ids), "delete products")
}

// --- 购物车 ---

func (s *relational) Cart(ctx context.Context) ([]model.CartItem, error) {
	var out []model.CartItem
	err := s.db.DB(ctx).Order("added_at, product_id").Find(&out).Error
	return out, storageErr(err, "list cart")
}

func (s *relational) ReplaceCart(ctx context.Context, items []model.CartItem) error {
	err := s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return replaceAll(tx, &model.CartItem{}, items, func(c model.CartItem) string { return c.ProductID })
	})
	return storageErr(err, "replace cart")
}

func (s *relational) UpsertCartItem(ctx context.Context, item model.CartItem) error {
	return storageErr(upsert(s.db.DB(ctx), &item), "upsert cart item")
}

func (s *relational) DeleteCartItem(ctx context.Context, productID string) error {
	err := s.db.DB(ctx).Where("product_id = ?", productID).Delete(&model.CartItem{}).Error
	return storageErr(err, "delete cart item")
}

// --- 订单 ---

func (s *relational) Orders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	err := s.db.DB(ctx).Order("created_at DESC, id").Find(&out).Error
	return out, storageErr(err, "list orders")
}

func (s *relational) Order(ctx context.Context, id string) (model.Order, error) {
	var o model.Order
	err := s.db.DB(ctx).Where("id = ?", id).Take(&o).Error
	if err = notFoundAsZero(err); err != nil {
		return model.Order{}, storageErr(err, "get order")
	}
	return o, nil
}

func (s *relational) ReplaceOrders(ctx context.Context, orders []model.Order) error {
	err := s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return replaceAll(tx, &model.Order{}, orders, func(o model.Order) string { return o.ID })
	})
	return storageErr(err, "replace orders")
}

func (s *relational) UpsertOrder(ctx context.Context, o model.Order) error {
	return storageErr(upsert(s.db.DB(ctx), &o), "upsert order")
}

func (s *relational) DeleteOrders(ctx context.Context, ids ...string) error {
	return storageErr(deleteByID(s.db.DB(ctx), &model.Order{}, ids), "delete orders")
}

// --- 通用 ---

// replaceAll 删除不在 rows 中的记录并 upsert 其余记录
func replaceAll[T any](tx *gorm.DB, table any, rows []T, id func(T) string) error {
	pk := primaryKeyColumn(table)
	if len(rows) == 0 {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error
	}

	keep := make([]string, len(rows))
	for i, r := range rows {
		keep[i] = id(r)
	}
	if err := tx.Where(pk+" NOT IN ?", keep).Delete(table).Error; err != nil {
		return err
	}
	return upsert(tx, &rows)
}

func upsert(tx *gorm.DB, value any) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func deleteByID(tx *gorm.DB, table any, ids []string) error {
	if len(ids) == 0 {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error
	}
	return tx.Where(primaryKeyColumn(table)+" IN ?", ids).Delete(table).Error
}

func primaryKeyColumn(table any) string {
	if _, ok := table.(*model.CartItem); ok {
		return "product_id"
	}
	return "id"
}

// SizeOf 估算值的存储大小（msgpack 编码后的字节数），用于缓存策略的容量统计
func SizeOf(v any) int64 {
	data, err := serializer.MessagePackSerializer{}.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
