package httpserver

import (
	"net/http"
	"strconv"

	"grocery-storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type addLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required,min=1"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Cart.State())
}

func (h *handlers) cartSummary(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Cart.CartSummary())
}

func (h *handlers) refreshCart(c *gin.Context) {
	sess := currentSession(c)
	_, err := sess.Cart.RefreshCart(c.Request.Context())
	h.respondCart(c, err)
}

func (h *handlers) addLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id and a quantity of at least 1 are required"})
		return
	}
	sess := currentSession(c)
	_, err := sess.Cart.AddToCart(c.Request.Context(), domain.Product{ID: req.ProductID}, req.Quantity)
	h.respondCart(c, err)
}

func (h *handlers) updateLine(c *gin.Context) {
	id, ok := lineID(c)
	if !ok {
		return
	}
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
		return
	}
	sess := currentSession(c)
	_, err := sess.Cart.UpdateCartItem(c.Request.Context(), id, req.Quantity)
	h.respondCart(c, err)
}

func (h *handlers) incrementLine(c *gin.Context) {
	id, ok := lineID(c)
	if !ok {
		return
	}
	_, err := currentSession(c).Cart.IncrementItem(c.Request.Context(), id)
	h.respondCart(c, err)
}

func (h *handlers) decrementLine(c *gin.Context) {
	id, ok := lineID(c)
	if !ok {
		return
	}
	_, err := currentSession(c).Cart.DecrementItem(c.Request.Context(), id)
	h.respondCart(c, err)
}

func (h *handlers) removeLine(c *gin.Context) {
	id, ok := lineID(c)
	if !ok {
		return
	}
	_, err := currentSession(c).Cart.RemoveFromCart(c.Request.Context(), id)
	h.respondCart(c, err)
}

func (h *handlers) clearCart(c *gin.Context) {
	_, err := currentSession(c).Cart.ClearCart(c.Request.Context())
	h.respondCart(c, err)
}

func (h *handlers) openCart(c *gin.Context) {
	sess := currentSession(c)
	sess.Cart.OpenCart()
	c.JSON(http.StatusOK, sess.Cart.State())
}

func (h *handlers) closeCart(c *gin.Context) {
	sess := currentSession(c)
	sess.Cart.CloseCart()
	c.JSON(http.StatusOK, sess.Cart.State())
}

func (h *handlers) dismissCartError(c *gin.Context) {
	sess := currentSession(c)
	sess.Cart.DismissError()
	c.JSON(http.StatusOK, sess.Cart.State())
}

// respondCart writes the store state after a cart operation. On failure the
// state still carries the last good cart next to the error message.
func (h *handlers) respondCart(c *gin.Context, err error) {
	state := currentSession(c).Cart.State()
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("cart operation failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(status, cartErrorResponse{Error: domain.UserMessage(err), Cart: state})
		return
	}
	c.JSON(http.StatusOK, state)
}

func lineID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return 0, false
	}
	return id, true
}
