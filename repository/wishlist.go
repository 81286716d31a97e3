package repository

import (
	"context"

	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/resource"
)

// Wishlist 心愿单，存放在 KV 缓存中
func (r *Repository) Wishlist(ctx context.Context, force bool) <-chan resource.Result[[]model.WishlistItem] {
	return syncKey(ctx, r, force, syncSpec[[]model.WishlistItem, []model.WishlistItem]{
		key:      KeyWishlist,
		endpoint: EndpointWishlist,
		policy:   r.policies.wishlist,
		query:    r.wishlist.Items,
		fetch:    r.api.Wishlist,
		save:     r.wishlist.Replace,
	})
}

// ToggleWishlist 远端切换成功后同步本地心愿单，返回商品是否在心愿单中
func (r *Repository) ToggleWishlist(ctx context.Context, productID string) (bool, error) {
	in, err := mutate(ctx, r, EndpointWishlistToggle, func(ctx context.Context) (bool, error) {
		return r.api.ToggleWishlist(ctx, productID)
	})
	if err != nil {
		return false, err
	}

	local, err := r.wishlist.Toggle(ctx, productID, r.now())
	if err == nil && local != in {
		// 本地原先就与远端不一致，再切换一次对齐
		local, err = r.wishlist.Toggle(ctx, productID, r.now())
	}
	if err != nil || local != in {
		r.ev.Invalidate(KeyWishlist, false)
	}
	r.commit(ctx, "wishlist", err)
	return in, nil
}
