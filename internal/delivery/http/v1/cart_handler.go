package v1

import (
	"net/http"
	"strconv"
	"time"

	"go-healthcare-frontdesk/internal/delivery/http/response"
	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	cartCookieName   = "cart_session"
	cartCookieMaxAge = 7 * 24 * 60 * 60

	// CartSessionTTL is how long an idle cart outlives its last request; it matches the cookie lifetime
	CartSessionTTL = cartCookieMaxAge * time.Second
)

type CartHandler struct {
	cartUC       domain.CartUsecase
	secureCookie bool
}

func NewCartHandler(public *gin.RouterGroup, cartUC domain.CartUsecase, secureCookie bool) {
	handler := &CartHandler{
		cartUC:       cartUC,
		secureCookie: secureCookie,
	}

	cart := public.Group("/cart")
	{
		cart.GET("", handler.List)
		cart.POST("/items", handler.Add)
		cart.DELETE("/items/:id", handler.Remove)
	}
}

// existingSession returns the session from a valid cart cookie, or "" when there is none
func existingSession(c *gin.Context) string {
	if id, err := c.Cookie(cartCookieName); err == nil {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return ""
}

// sessionID returns the caller's cart session, issuing a new cookie on first use
func (h *CartHandler) sessionID(c *gin.Context) string {
	if id := existingSession(c); id != "" {
		return id
	}

	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cartCookieName, id, cartCookieMaxAge, "/", "", h.secureCookie, true)
	return id
}

// List godoc
// @Summary      List cart items
// @Tags         cart
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.CartItem}
// @Router       /cart [get]
func (h *CartHandler) List(c *gin.Context) {
	items := h.cartUC.List(c.Request.Context(), existingSession(c))
	response.Success(c, http.StatusOK, "Cart retrieved", items)
}

// Add godoc
// @Summary      Add an item to the cart
// @Description  Items are appended as-is; adding the same id twice keeps both entries.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        item  body      domain.CartItem  true  "Cart item"
// @Success      200   {object}  response.Response{data=[]domain.CartItem}
// @Failure      400   {object}  response.Response
// @Router       /cart/items [post]
func (h *CartHandler) Add(c *gin.Context) {
	var item domain.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.Error(apperror.New(http.StatusBadRequest, "Invalid cart item", err))
		return
	}

	items := h.cartUC.Add(c.Request.Context(), h.sessionID(c), item)
	response.Success(c, http.StatusOK, "Item added to cart", items)
}

// Remove godoc
// @Summary      Remove an item from the cart
// @Description  Removes every entry with the given id. Unknown ids are ignored.
// @Tags         cart
// @Produce      json
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  response.Response{data=[]domain.CartItem}
// @Failure      400  {object}  response.Response
// @Router       /cart/items/{id} [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(apperror.BadRequest("Invalid item ID"))
		return
	}

	items := h.cartUC.Remove(c.Request.Context(), existingSession(c), id)
	response.Success(c, http.StatusOK, "Item removed from cart", items)
}
