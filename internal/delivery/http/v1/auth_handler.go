package v1

import (
	"net/http"
	"strings"

	"go-healthcare-frontdesk/internal/delivery/http/middleware"
	"go-healthcare-frontdesk/internal/delivery/http/response"
	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/pkg/apperror"
	"go-healthcare-frontdesk/pkg/validation"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	provider domain.AuthProvider
}

func NewAuthHandler(public *gin.RouterGroup, protected *gin.RouterGroup, provider domain.AuthProvider, limit gin.HandlerFunc) {
	handler := &AuthHandler{
		provider: provider,
	}

	// Public Routes
	publicAuth := public.Group("/auth", limit)
	{
		publicAuth.POST("/signup", handler.SignUp)
		publicAuth.POST("/login", handler.Login)
	}

	// Protected Routes
	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.GET("/me", handler.Me)
	}
}

// SignUp godoc
// @Summary      Create an account
// @Description  With AUTH_PROVIDER=simulated any well-formed request succeeds.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        signup  body      domain.SignUpRequest  true  "Sign-up details"
// @Success      201     {object}  response.Response{data=domain.Session}
// @Failure      400     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req domain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.New(http.StatusBadRequest, strings.Join(validation.FormatValidationErrors(err), "; "), err))
		return
	}

	session, err := h.provider.SignUp(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Account created", session)
}

// Login godoc
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      domain.LoginRequest  true  "Credentials"
// @Success      200    {object}  response.Response{data=domain.Session}
// @Failure      400    {object}  response.Response
// @Failure      401    {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.New(http.StatusBadRequest, strings.Join(validation.FormatValidationErrors(err), "; "), err))
		return
	}

	session, err := h.provider.Login(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Login successful", session)
}

// Me godoc
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.Error(apperror.Unauthorized("Unauthorized"))
		return
	}

	response.Success(c, http.StatusOK, "Account retrieved", gin.H{
		"id":         claims.Subject,
		"email":      claims.Email,
		"full_name":  claims.FullName,
		"provider":   claims.Provider,
		"expires_at": claims.ExpiresAt.Time,
	})
}
