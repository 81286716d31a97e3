package mockapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/model"
)

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type toggleResponse struct {
	ProductID  string `json:"product_id"`
	InWishlist bool   `json:"in_wishlist"`
}

func (s *Server) routes(r *gin.Engine) {
	v1 := r.Group("/v1", s.countHits())
	v1.GET("/products", s.listProducts)
	v1.GET("/products/:id", s.getProduct)
	v1.GET("/cart", s.getCart)
	v1.POST("/cart/items", s.addCartItem)
	v1.DELETE("/cart/items/:id", s.removeCartItem)
	v1.GET("/orders", s.listOrders)
	v1.GET("/orders/:id", s.getOrder)
	v1.POST("/orders", s.placeOrder)
	v1.GET("/wishlist", s.getWishlist)
	v1.POST("/wishlist/:id/toggle", s.toggleWishlist)
}

// countHits 统计处理成功（含 304）的请求
func (s *Server) countHits() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < http.StatusBadRequest {
			s.mu.Lock()
			s.hits[c.Request.Method+" "+c.FullPath()]++
			s.mu.Unlock()
		}
	}
}

func (s *Server) listProducts(c *gin.Context) {
	category := c.Query("category")
	s.mu.Lock()
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	respond(c, http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	s.mu.Lock()
	p, ok := s.findProduct(c.Param("id"))
	s.mu.Unlock()
	if !ok {
		fail(c, http.StatusNotFound, "product not found")
		return
	}
	respond(c, http.StatusOK, p)
}

func (s *Server) getCart(c *gin.Context) {
	s.mu.Lock()
	out := slices.Clone(s.cart)
	s.mu.Unlock()
	respond(c, http.StatusOK, nonNil(out))
}

func (s *Server) addCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity <= 0 {
		fail(c, http.StatusBadRequest, "product_id and a positive quantity are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.findProduct(req.ProductID)
	if !ok {
		fail(c, http.StatusNotFound, "product not found")
		return
	}

	idx := slices.IndexFunc(s.cart, func(it model.CartItem) bool { return it.ProductID == req.ProductID })
	inCart := 0
	if idx >= 0 {
		inCart = s.cart[idx].Quantity
	}
	if inCart+req.Quantity > p.Stock {
		fail(c, http.StatusConflict, "insufficient stock")
		return
	}

	if idx >= 0 {
		s.cart[idx].Quantity += req.Quantity
		s.cart[idx].UnitPrice = p.Price
	} else {
		s.cart = append(s.cart, model.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  req.Quantity,
			UnitPrice: p.Price,
			AddedAt:   s.now(),
		})
	}
	respond(c, http.StatusOK, slices.Clone(s.cart))
}

func (s *Server) removeCartItem(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.cart, func(it model.CartItem) bool { return it.ProductID == id })
	if idx < 0 {
		fail(c, http.StatusNotFound, "item not in cart")
		return
	}
	s.cart = slices.Delete(s.cart, idx, idx+1)
	respond(c, http.StatusOK, nonNil(slices.Clone(s.cart)))
}

func (s *Server) listOrders(c *gin.Context) {
	s.mu.Lock()
	out := slices.Clone(s.orders)
	s.mu.Unlock()
	// 新订单在前
	slices.Reverse(out)
	respond(c, http.StatusOK, nonNil(out))
}

func (s *Server) getOrder(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	idx := slices.IndexFunc(s.orders, func(o model.Order) bool { return o.ID == id })
	var o model.Order
	if idx >= 0 {
		o = s.orders[idx]
	}
	s.mu.Unlock()
	if idx < 0 {
		fail(c, http.StatusNotFound, "order not found")
		return
	}
	respond(c, http.StatusOK, o)
}

func (s *Server) placeOrder(c *gin.Context) {
	var req model.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Address == "" {
		fail(c, http.StatusBadRequest, "address is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		fail(c, http.StatusConflict, "cart is empty")
		return
	}

	now := s.now()
	order := model.Order{
		ID:        uuid.NewString(),
		Status:    model.OrderPending,
		Total:     model.CartTotal(s.cart),
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, it := range s.cart {
		order.Items = append(order.Items, model.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
		for i := range s.products {
			if s.products[i].ID == it.ProductID {
				s.products[i].Stock -= it.Quantity
				s.products[i].UpdatedAt = now
			}
		}
	}
	s.orders = append(s.orders, order)
	s.cart = nil

	s.logger.Info("order placed", clog.String("order_id", order.ID), clog.Int64("total", order.Total))
	respond(c, http.StatusCreated, order)
}

func (s *Server) getWishlist(c *gin.Context) {
	s.mu.Lock()
	out := slices.Clone(s.wishlist)
	s.mu.Unlock()
	respond(c, http.StatusOK, nonNil(out))
}

func (s *Server) toggleWishlist(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProduct(id); !ok {
		fail(c, http.StatusNotFound, "product not found")
		return
	}

	idx := slices.IndexFunc(s.wishlist, func(it model.WishlistItem) bool { return it.ProductID == id })
	if idx >= 0 {
		s.wishlist = slices.Delete(s.wishlist, idx, idx+1)
	} else {
		s.wishlist = append(s.wishlist, model.WishlistItem{ProductID: id, AddedAt: s.now()})
	}
	respond(c, http.StatusOK, toggleResponse{ProductID: id, InWishlist: idx < 0})
}

// findProduct 调用方持有 s.mu
func (s *Server) findProduct(id string) (model.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// nonNil 空列表编码为 [] 而不是 null
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// respond 写入成功信封；GET 请求带 ETag，If-None-Match 命中时返回 304
func respond(c *gin.Context, status int, data any) {
	body, err := json.Marshal(gin.H{"success": true, "data": data})
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	if c.Request.Method == http.MethodGet {
		sum := sha256.Sum256(body)
		etag := `"` + hex.EncodeToString(sum[:8]) + `"`
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			c.Writer.WriteHeaderNow()
			return
		}
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// fail 写入失败信封并中止后续处理
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
