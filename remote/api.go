package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/xerrors"
)

// 路由模板
const (
	RouteProducts       = "products"
	RouteProduct        = "products/:id"
	RouteCart           = "cart"
	RouteCartItems      = "cart/items"
	RouteCartItem       = "cart/items/:id"
	RouteOrders         = "orders"
	RouteOrder          = "orders/:id"
	RouteWishlist       = "wishlist"
	RouteWishlistToggle = "wishlist/:id/toggle"
)

// AddToCartRequest 加购请求体
type AddToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ToggleResult 心愿单切换结果
type ToggleResult struct {
	ProductID  string `json:"product_id"`
	InWishlist bool   `json:"in_wishlist"`
}

func requireID(id string) error {
	if id == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "remote: id is empty")
	}
	return nil
}

func (c *client) Products(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := c.do(ctx, call{method: http.MethodGet, route: RouteProducts, path: "products"}, &out)
	return out, err
}

func (c *client) Product(ctx context.Context, id string) (model.Product, error) {
	var out model.Product
	if err := requireID(id); err != nil {
		return out, err
	}
	err := c.do(ctx, call{method: http.MethodGet, route: RouteProduct, path: "products/" + url.PathEscape(id)}, &out)
	return out, err
}

func (c *client) Cart(ctx context.Context) ([]model.CartItem, error) {
	var out []model.CartItem
	err := c.do(ctx, call{method: http.MethodGet, route: RouteCart, path: "cart"}, &out)
	return out, err
}

func (c *client) AddToCart(ctx context.Context, productID string, quantity int) ([]model.CartItem, error) {
	if err := requireID(productID); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "remote: quantity must be positive, got %d", quantity)
	}
	var out []model.CartItem
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  RouteCartItems,
		path:   "cart/items",
		body:   AddToCartRequest{ProductID: productID, Quantity: quantity},
	}, &out)
	return out, err
}

func (c *client) RemoveFromCart(ctx context.Context, productID string) ([]model.CartItem, error) {
	if err := requireID(productID); err != nil {
		return nil, err
	}
	var out []model.CartItem
	err := c.do(ctx, call{method: http.MethodDelete, route: RouteCartItem, path: "cart/items/" + url.PathEscape(productID)}, &out)
	return out, err
}

func (c *client) Orders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	err := c.do(ctx, call{method: http.MethodGet, route: RouteOrders, path: "orders"}, &out)
	return out, err
}

func (c *client) Order(ctx context.Context, id string) (model.Order, error) {
	var out model.Order
	if err := requireID(id); err != nil {
		return out, err
	}
	err := c.do(ctx, call{method: http.MethodGet, route: RouteOrder, path: "orders/" + url.PathEscape(id)}, &out)
	return out, err
}

func (c *client) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	var out model.Order
	if req.Address == "" {
		return out, xerrors.Wrap(xerrors.ErrInvalidInput, "remote: address is empty")
	}
	err := c.do(ctx, call{method: http.MethodPost, route: RouteOrders, path: "orders", body: req}, &out)
	return out, err
}

func (c *client) Wishlist(ctx context.Context) ([]model.WishlistItem, error) {
	var out []model.WishlistItem
	err := c.do(ctx, call{method: http.MethodGet, route: RouteWishlist, path: "wishlist"}, &out)
	return out, err
}

func (c *client) ToggleWishlist(ctx context.Context, productID string) (bool, error) {
	if err := requireID(productID); err != nil {
		return false, err
	}
	var out ToggleResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  RouteWishlistToggle,
		path:   "wishlist/" + url.PathEscape(productID) + "/toggle",
	}, &out)
	return out.InWishlist, err
}
