package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hykura1501/e-commerce/internal/adapter/http/middleware"
	"github.com/hykura1501/e-commerce/internal/adapter/observ"
	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/hykura1501/e-commerce/internal/pricing"
	"github.com/hykura1501/e-commerce/internal/usecase"
)

// Sessions resolves the cart controller of a visitor session.
type Sessions interface {
	Get(ctx context.Context, sessionID, userID string) (*usecase.CartController, error)
}

type CartHandler struct {
	sessions Sessions
	catalog  usecase.ProductCatalog
	profiles usecase.ProfileRepo
	idem     usecase.IdempotencyStore // nil disables replay protection
	metrics  *observ.Metrics
	timeout  time.Duration
}

type CartHandlerDeps struct {
	Sessions    Sessions
	Catalog     usecase.ProductCatalog
	Profiles    usecase.ProfileRepo
	Idempotency usecase.IdempotencyStore
	Metrics     *observ.Metrics
	Timeout     time.Duration
}

func NewCartHandler(d CartHandlerDeps) *CartHandler {
	if d.Timeout <= 0 {
		d.Timeout = 5 * time.Second
	}
	return &CartHandler{
		sessions: d.Sessions,
		catalog:  d.Catalog,
		profiles: d.Profiles,
		idem:     d.Idempotency,
		metrics:  d.Metrics,
		timeout:  d.Timeout,
	}
}

type addItemReq struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

type updateQuantityReq struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type lineResp struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
	Selected bool           `json:"selected"`
	Subtotal string         `json:"subtotal"`
	Discount string         `json:"discount"`
	Total    string         `json:"total"`
}

type summaryResp struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

type cartResp struct {
	SessionID string        `json:"session_id"`
	Mode      domain.Mode   `json:"mode"`
	State     usecase.State `json:"state"`
	Items     []lineResp    `json:"items"`
	Selected  []string      `json:"selected"`
	Summary   summaryResp   `json:"summary"`
}

type checkoutResp struct {
	OrderID  string    `json:"order_id"`
	Total    string    `json:"total,omitempty"`
	Stale    bool      `json:"stale,omitempty"`
	Replayed bool      `json:"replayed,omitempty"`
	Cart     *cartResp `json:"cart,omitempty"`
}

func (h *CartHandler) Register(g *gin.RouterGroup) {
	cart := g.Group("/cart")
	cart.GET("", h.GetCart)
	cart.POST("/items", h.AddItem)
	cart.PUT("/items/:id", h.UpdateQuantity)
	cart.DELETE("/items/:id", h.RemoveItem)
	cart.POST("/selection/:id/toggle", h.ToggleSelection)
	cart.POST("/selection/all", h.SelectAll)
	cart.DELETE("/selection", h.ClearSelection)
	cart.POST("/checkout", h.Checkout)
}

func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	ctrl, err := h.controller(ctx, c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, render(middleware.SessionID(c), ctrl))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	h.mutate(c, func(ctx context.Context, ctrl *usecase.CartController) error {
		if qty < 1 || qty > usecase.MaxLineQuantity {
			return usecase.ErrInvalidQuantity
		}
		p, err := h.catalog.Get(ctx, req.ProductID)
		if err != nil {
			return err
		}
		return ctrl.AddItem(ctx, p, qty)
	})
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req updateQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	id := c.Param("id")
	h.mutate(c, func(ctx context.Context, ctrl *usecase.CartController) error {
		return ctrl.UpdateQuantity(ctx, id, *req.Quantity)
	})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	id := c.Param("id")
	h.mutate(c, func(ctx context.Context, ctrl *usecase.CartController) error {
		return ctrl.RemoveItem(ctx, id)
	})
}

func (h *CartHandler) ToggleSelection(c *gin.Context) {
	id := c.Param("id")
	h.mutate(c, func(ctx context.Context, ctrl *usecase.CartController) error {
		return ctrl.ToggleSelection(ctx, id)
	})
}

func (h *CartHandler) SelectAll(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, ctrl *usecase.CartController) error {
		return ctrl.SelectAll(ctx)
	})
}

func (h *CartHandler) ClearSelection(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, ctrl *usecase.CartController) error {
		return ctrl.ClearSelection(ctx)
	})
}

// Checkout places an order for the selected lines. With X-Idempotency-Key a
// replayed request gets the first order back instead of a second order.
func (h *CartHandler) Checkout(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	sid := middleware.SessionID(c)

	ctrl, err := h.controller(ctx, c)
	if err != nil {
		h.fail(c, err)
		return
	}

	key := c.GetHeader("X-Idempotency-Key")
	scope := "checkout:" + sid
	if key != "" && h.idem != nil {
		first, err := h.idem.TryLock(ctx, scope, key)
		if err != nil {
			logging.From(c).Warn("idempotency store unavailable, continuing without it", "err", err)
			key = ""
		} else if !first {
			orderID, ok, rerr := h.idem.Recall(ctx, scope, key)
			switch {
			case rerr != nil:
				logging.From(c).Warn("idempotency store unavailable, continuing without it", "err", rerr)
				key = ""
			case ok:
				c.JSON(http.StatusOK, checkoutResp{OrderID: orderID, Replayed: true})
				return
			default:
				h.fail(c, usecase.ErrDuplicate)
				return
			}
		}
	}

	user, err := h.shopper(ctx, c, ctrl)
	if err == nil {
		var res usecase.CheckoutResult
		res, err = ctrl.Checkout(ctx, user)
		if err == nil {
			if key != "" && h.idem != nil {
				if rerr := h.idem.Remember(ctx, scope, key, res.OrderID); rerr != nil {
					logging.From(c).Warn("order id not remembered", "order_id", res.OrderID, "err", rerr)
				}
			}
			view := render(sid, ctrl)
			c.JSON(http.StatusCreated, checkoutResp{
				OrderID: res.OrderID,
				Total:   res.Draft.Total.StringFixed(2),
				Stale:   res.Stale,
				Cart:    &view,
			})
			return
		}
	}

	if key != "" && h.idem != nil {
		// free the key so the client may retry after fixing the cause
		_ = h.idem.Release(context.WithoutCancel(ctx), scope, key)
	}
	h.fail(c, err)
}

// shopper loads the profile of the authenticated user. An empty selection
// needs no profile: the controller reports it first.
func (h *CartHandler) shopper(ctx context.Context, c *gin.Context, ctrl *usecase.CartController) (*domain.User, error) {
	uid := middleware.UserID(c)
	if uid == "" || len(ctrl.Selection()) == 0 {
		return nil, nil
	}
	u, err := h.profiles.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return &domain.User{ID: uid}, nil
	}
	return u, nil
}

func (h *CartHandler) mutate(c *gin.Context, op func(context.Context, *usecase.CartController) error) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	ctrl, err := h.controller(ctx, c)
	if err == nil {
		err = op(ctx, ctrl)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, render(middleware.SessionID(c), ctrl))
}

func (h *CartHandler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *CartHandler) controller(ctx context.Context, c *gin.Context) (*usecase.CartController, error) {
	return h.sessions.Get(ctx, middleware.SessionID(c), middleware.UserID(c))
}

func render(sessionID string, ctrl *usecase.CartController) cartResp {
	v := ctrl.View()
	sel := ctrl.Selection()
	picked := make(map[string]bool, len(sel))
	for _, id := range sel {
		picked[id] = true
	}
	lines := make([]lineResp, 0, len(v.Items))
	for _, it := range v.Items {
		lines = append(lines, lineResp{
			Product:  it.Product,
			Quantity: it.Quantity,
			Selected: picked[it.Product.ID],
			Subtotal: pricing.LineSubtotal(it).StringFixed(2),
			Discount: pricing.LineDiscount(it).StringFixed(2),
			Total:    pricing.LineNet(it).StringFixed(2),
		})
	}
	agg := ctrl.Aggregates().Display()
	return cartResp{
		SessionID: sessionID,
		Mode:      v.Mode,
		State:     v.State,
		Items:     lines,
		Selected:  sel,
		Summary: summaryResp{
			Subtotal: agg.Subtotal.StringFixed(2),
			Discount: agg.Discount.StringFixed(2),
			Total:    agg.Total.StringFixed(2),
		},
	}
}

var statusByCode = map[usecase.Code]int{
	usecase.CodeEmptySelection:     http.StatusUnprocessableEntity,
	usecase.CodeIncompleteProfile:  http.StatusUnprocessableEntity,
	usecase.CodeInvalidQuantity:    http.StatusUnprocessableEntity,
	usecase.CodeUnauthenticated:    http.StatusUnauthorized,
	usecase.CodeItemNotFound:       http.StatusNotFound,
	usecase.CodeRemoteRejected:     http.StatusBadGateway,
	usecase.CodeOrderRejected:      http.StatusBadGateway,
	usecase.CodePersistenceFailure: http.StatusServiceUnavailable,
	usecase.CodeNotReady:           http.StatusConflict,
}

func (h *CartHandler) fail(c *gin.Context, err error) {
	code, msg := string(usecase.CodeOf(err)), usecase.MessageOf(err)
	status, ok := statusByCode[usecase.Code(code)]
	switch {
	case ok:
	case errors.Is(err, usecase.ErrDuplicate):
		status, code, msg = http.StatusConflict, "duplicate_request", "This checkout is already in progress"
	case errors.Is(err, domain.ErrInvalidPrice), errors.Is(err, domain.ErrInvalidDiscount):
		status, code, msg = http.StatusBadGateway, "invalid_product", "The product data is invalid"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status, code, msg = http.StatusServiceUnavailable, "timeout", "The cart is busy, please try again"
	default:
		status, code = http.StatusInternalServerError, "internal"
	}
	if h.metrics != nil {
		h.metrics.CartErrors.WithLabelValues(code).Inc()
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": code, "message": msg})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "malformed request body"})
}
