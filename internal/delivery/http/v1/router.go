package v1

import (
	"expvar"
	"net/http"
	"slices"
	"strings"
	"time"

	"go-healthcare-frontdesk/config"
	"go-healthcare-frontdesk/internal/delivery/http/middleware"
	"go-healthcare-frontdesk/internal/delivery/http/response"
	"go-healthcare-frontdesk/internal/domain"
	"go-healthcare-frontdesk/internal/usecase"
	"go-healthcare-frontdesk/pkg/apperror"
	"go-healthcare-frontdesk/pkg/auth"
	"go-healthcare-frontdesk/pkg/storage"
	"go-healthcare-frontdesk/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	SubmissionUC domain.SubmissionUsecase
	CartUC       domain.CartUsecase
	HealthUC     usecase.HealthUsecase
	AuthProvider domain.AuthProvider
	Tokens       *auth.TokenIssuer
	Spool        *storage.Spool
	RateLimiter  *middleware.RateLimiter // nil uses per-process counters
	Config       *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.RegisterValidators(v)
	}

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	window := time.Duration(deps.Config.RateLimitWindowSeconds) * time.Second

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.FrontendURL)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.Middleware(middleware.GlobalRateLimitConfig(deps.Config.RateLimitGlobalThreshold, window)))

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		status := deps.HealthUC.Check(c.Request.Context())
		response.Success(c, http.StatusOK, "System operational", status)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	submissions := v1.Group("", limiter.Middleware(middleware.SubmissionRateLimitConfig(deps.Config.RateLimitSubmissionThreshold, window)))
	NewSubmissionHandler(submissions, deps.SubmissionUC, deps.Spool, deps.Config.MaxUploadBytes)
	NewCartHandler(v1, deps.CartUC, gin.Mode() == gin.ReleaseMode)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	{
		NewAuthHandler(v1, protected, deps.AuthProvider, limiter.Middleware(middleware.AuthRateLimitConfig(window)))

		// Counters; expvar also publishes cmdline and memstats
		protected.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	}

	r.NoMethod(methodNotAllowed(r.Routes()))

	return r
}

// methodNotAllowed answers a known path requested with an unregistered method.
// gin 1.9 does not set Allow, so it is derived from the registered routes.
func methodNotAllowed(routes gin.RoutesInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if allow := allowedMethods(routes, c.Request.URL.Path); len(allow) > 0 {
			c.Header("Allow", strings.Join(allow, ", "))
		}
		c.Error(apperror.MethodNotAllowed(domain.MsgMethodNotAllowed))
	}
}

func allowedMethods(routes gin.RoutesInfo, path string) []string {
	var methods []string
	for _, route := range routes {
		if matchRoute(route.Path, path) && !slices.Contains(methods, route.Method) {
			methods = append(methods, route.Method)
		}
	}
	slices.Sort(methods)
	return methods
}

// matchRoute compares a gin route pattern with a request path segment by segment
func matchRoute(pattern, path string) bool {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range want {
		if strings.HasPrefix(seg, "*") {
			return true
		}
		if i >= len(got) {
			return false
		}
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return len(want) == len(got)
}
