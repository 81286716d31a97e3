package repository

import (
	"context"

	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/resource"
)

// Orders 订单列表，新订单在前
func (r *Repository) Orders(ctx context.Context, force bool) <-chan resource.Result[[]model.Order] {
	return syncKey(ctx, r, force, syncSpec[[]model.Order, []model.Order]{
		key:      KeyOrders,
		endpoint: EndpointOrders,
		policy:   r.policies.orders,
		query:    r.rel.Orders,
		fetch:    r.api.Orders,
		save:     r.rel.ReplaceOrders,
	})
}

// Order 单个订单，本地不存在时先发出零值
func (r *Repository) Order(ctx context.Context, id string, force bool) <-chan resource.Result[model.Order] {
	return syncKey(ctx, r, force, syncSpec[model.Order, model.Order]{
		key:      OrderKey(id),
		endpoint: EndpointOrder,
		policy:   r.policies.order,
		query: func(ctx context.Context) (model.Order, error) {
			return r.rel.Order(ctx, id)
		},
		fetch: func(ctx context.Context) (model.Order, error) {
			return r.api.Order(ctx, id)
		},
		save: r.rel.UpsertOrder,
	})
}

// PlaceOrder 远端下单成功后写入订单、清空本地购物车，
// 并使订单列表和商品（库存已变化）连同依赖项失效
func (r *Repository) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	order, err := mutate(ctx, r, EndpointOrderPlace, func(ctx context.Context) (model.Order, error) {
		return r.api.PlaceOrder(ctx, req)
	})
	if err != nil {
		return order, err
	}

	r.commit(ctx, "order", r.rel.UpsertOrder(ctx, order))
	r.commitCart(ctx, nil)
	r.ev.Invalidate(KeyOrders, true)
	r.ev.Invalidate(KeyProducts, true)
	return order, nil
}
