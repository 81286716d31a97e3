package repository

import (
	"context"

	"github.com/noghresod/shopsync/cachepolicy"
	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/resource"
	"github.com/noghresod/shopsync/store"
)

// Cart 购物车
func (r *Repository) Cart(ctx context.Context, force bool) <-chan resource.Result[[]model.CartItem] {
	return syncKey(ctx, r, force, syncSpec[[]model.CartItem, []model.CartItem]{
		key:      KeyCart,
		endpoint: EndpointCart,
		policy:   r.policies.cart,
		query:    r.rel.Cart,
		fetch:    r.api.Cart,
		save:     r.rel.ReplaceCart,
	})
}

// AddToCart 远端加购成功后用服务端返回的购物车替换本地
func (r *Repository) AddToCart(ctx context.Context, productID string, quantity int) ([]model.CartItem, error) {
	items, err := mutate(ctx, r, EndpointCartAdd, func(ctx context.Context) ([]model.CartItem, error) {
		return r.api.AddToCart(ctx, productID, quantity)
	})
	if err != nil {
		return nil, err
	}
	r.commitCart(ctx, items)
	return items, nil
}

// RemoveFromCart 远端删除成功后用服务端返回的购物车替换本地
func (r *Repository) RemoveFromCart(ctx context.Context, productID string) ([]model.CartItem, error) {
	items, err := mutate(ctx, r, EndpointCartRemove, func(ctx context.Context) ([]model.CartItem, error) {
		return r.api.RemoveFromCart(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	r.commitCart(ctx, items)
	return items, nil
}

// commitCart 服务端返回的是完整购物车，直接登记为新鲜数据
func (r *Repository) commitCart(ctx context.Context, items []model.CartItem) {
	if err := r.rel.ReplaceCart(ctx, items); err != nil {
		r.ev.Invalidate(KeyCart, true)
		r.commit(ctx, "cart", err)
		return
	}
	r.commit(ctx, "cart", r.ev.Update(KeyCart, r.policies.cart, cachepolicy.WithSize(store.SizeOf(items))))
}
