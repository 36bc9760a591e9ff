package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/trades-marketplace/internal/config"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/http/middleware"
	"github.com/ignatzorin/trades-marketplace/internal/interface/http/handler"
)

// Handlers собирает обработчики, которые регистрирует роутер.
type Handlers struct {
	Job      *handler.JobHandler
	Quote    *handler.QuoteHandler
	Checkout *handler.CheckoutHandler
	Webhook  *handler.WebhookHandler
	Health   *handler.HealthHandler
	WS       *handler.WSHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokens middleware.AccessTokenParser,
	limiterStore limiter.Store,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.NoRoute(middleware.NotFoundHandler)

	r.GET("/health", h.Health.Health)

	// Вебхук провайдера подписан, авторизация и лимиты к нему не применяются
	r.POST("/webhooks/payments", h.Webhook.HandlePaymentEvent)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	protected.Use(middleware.RateLimitMiddleware(limiterStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))

	customer := middleware.RequireRole(valueobject.RoleCustomer)
	tradesperson := middleware.RequireRole(valueobject.RoleTradesperson)
	jobID := middleware.UUIDValidator("id")

	jobs := protected.Group("/jobs")
	{
		jobs.POST("", customer, h.Job.CreateJob)
		jobs.GET("/my", customer, h.Job.ListMyJobs)
		jobs.GET("/:id", jobID, h.Job.GetJob)
		jobs.GET("/:id/quotes", jobID, h.Quote.ListJobQuotes)
		jobs.POST("/:id/quotes/:quoteId/accept", jobID, customer, h.Job.AcceptQuote)
		jobs.POST("/:id/quotes/:quoteId/reject", jobID, customer, h.Quote.RejectQuote)
		jobs.POST("/:id/cancel", jobID, customer, h.Job.CancelJob)
		jobs.POST("/:id/start", jobID, tradesperson, h.Job.StartWork)
		jobs.POST("/:id/complete", jobID, customer, h.Job.CompleteJob)
	}

	quotes := protected.Group("/quotes")
	{
		quotes.POST("", tradesperson, h.Quote.SubmitQuote)
		quotes.GET("/my", tradesperson, h.Quote.ListMyQuotes)
		quotes.GET("/quota", tradesperson, h.Quote.GetQuota)
		quotes.POST("/:id/withdraw", middleware.UUIDValidator("id"), tradesperson, h.Quote.WithdrawQuote)
	}

	protected.POST("/payments/checkout", customer, h.Checkout.CreateCheckout)

	return r
}
