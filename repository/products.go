package repository

import (
	"context"

	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/resource"
)

// Products 商品列表
func (r *Repository) Products(ctx context.Context, force bool) <-chan resource.Result[[]model.Product] {
	return syncKey(ctx, r, force, syncSpec[[]model.Product, []model.Product]{
		key:      KeyProducts,
		endpoint: EndpointProducts,
		policy:   r.policies.products,
		query:    r.rel.Products,
		fetch:    r.api.Products,
		save:     r.rel.ReplaceProducts,
	})
}

// Product 单个商品，本地不存在时先发出零值
func (r *Repository) Product(ctx context.Context, id string, force bool) <-chan resource.Result[model.Product] {
	return syncKey(ctx, r, force, syncSpec[model.Product, model.Product]{
		key:      ProductKey(id),
		endpoint: EndpointProduct,
		policy:   r.policies.product,
		query: func(ctx context.Context) (model.Product, error) {
			return r.rel.Product(ctx, id)
		},
		fetch: func(ctx context.Context) (model.Product, error) {
			return r.api.Product(ctx, id)
		},
		save: r.rel.UpsertProduct,
	})
}
