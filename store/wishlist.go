package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/noghresod/shopsync/cache"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/model"
)

// WishlistKey 心愿单在 KV 缓存中的 key
const WishlistKey = "wishlist"

// Wishlist KV 缓存中的心愿单，整体存为一个值
type Wishlist interface {
	Items(ctx context.Context) ([]model.WishlistItem, error)
	Replace(ctx context.Context, items []model.WishlistItem) error
	// Toggle 商品在列表中则移除，否则加入；返回操作后是否在列表中
	Toggle(ctx context.Context, productID string, at time.Time) (bool, error)
	Clear(ctx context.Context) error
}

type wishlist struct {
	kv     cache.Cache
	logger clog.Logger
	// 读改写需要串行
	mu sync.Mutex
}

// NewWishlist 基于 KV 缓存创建心愿单存储
func NewWishlist(kv cache.Cache, opts ...Option) Wishlist {
	return &wishlist{kv: kv, logger: applyOptions(opts...).logger}
}

func (w *wishlist) Items(ctx context.Context) ([]model.WishlistItem, error) {
	var items []model.WishlistItem
	err := w.kv.Get(ctx, WishlistKey, &items)
	if cache.IsMiss(err) {
		return nil, nil
	}
	return items, storageErr(err, "get wishlist")
}

func (w *wishlist) Replace(ctx context.Context, items []model.WishlistItem) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return storageErr(w.kv.Set(ctx, WishlistKey, items, 0), "replace wishlist")
}

func (w *wishlist) Toggle(ctx context.Context, productID string, at time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	items, err := w.Items(ctx)
	if err != nil {
		return false, err
	}

	idx := slices.IndexFunc(items, func(it model.WishlistItem) bool { return it.ProductID == productID })
	present := idx < 0
	if present {
		items = append(items, model.WishlistItem{ProductID: productID, AddedAt: at})
	} else {
		items = slices.Delete(items, idx, idx+1)
	}

	if err := w.kv.Set(ctx, WishlistKey, items, 0); err != nil {
		return false, storageErr(err, "toggle wishlist")
	}
	w.logger.Debug("wishlist toggled", clog.String("product_id", productID), clog.Bool("present", present))
	return present, nil
}

func (w *wishlist) Clear(ctx context.Context) error {
	return storageErr(w.kv.Delete(ctx, WishlistKey), "clear wishlist")
}
