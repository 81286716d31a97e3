package repository

import (
	"context"
	"time"

	"github.com/noghresod/shopsync/resource"
)

// Report 一次同步的结果摘要
type Report struct {
	Key      string
	Source   resource.Source
	Items    int
	Err      error
	Duration time.Duration
}

// SyncAll 依次同步商品、购物车、订单和心愿单，返回每个 key 最后一个结果的摘要。
// 只有在 WithErrorEmission 下失败才会体现在 Report.Err 中
func (r *Repository) SyncAll(ctx context.Context, force bool) []Report {
	start := time.Now()
	products := summarize(KeyProducts, r.Products(ctx, force), start)

	start = time.Now()
	cart := summarize(KeyCart, r.Cart(ctx, force), start)

	start = time.Now()
	orders := summarize(KeyOrders, r.Orders(ctx, force), start)

	start = time.Now()
	wishlist := summarize(KeyWishlist, r.Wishlist(ctx, force), start)

	return []Report{products, cart, orders, wishlist}
}

func summarize[T any](key string, ch <-chan resource.Result[[]T], start time.Time) Report {
	last, _ := resource.Last(ch)
	return Report{
		Key:      key,
		Source:   last.Source,
		Items:    len(last.Value),
		Err:      last.Err,
		Duration: time.Since(start),
	}
}
