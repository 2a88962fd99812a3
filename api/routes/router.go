package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazar-market/bazar-backend/api/controllers"
	cartcontrollers "github.com/bazar-market/bazar-backend/api/controllers/cart"
	couponcontrollers "github.com/bazar-market/bazar-backend/api/controllers/coupons"
	ordercontrollers "github.com/bazar-market/bazar-backend/api/controllers/orders"
	paymentcontrollers "github.com/bazar-market/bazar-backend/api/controllers/payments"
	sellercontrollers "github.com/bazar-market/bazar-backend/api/controllers/seller"
	subscriptioncontrollers "github.com/bazar-market/bazar-backend/api/controllers/subscriptions"
	webhookcontrollers "github.com/bazar-market/bazar-backend/api/controllers/webhooks"
	"github.com/bazar-market/bazar-backend/api/middleware"
	stripewebhook "github.com/bazar-market/bazar-backend/internal/webhooks/stripe"
	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/metrics"
	"github.com/bazar-market/bazar-backend/pkg/redis"
	"github.com/bazar-market/bazar-backend/pkg/stripe"
)

// Dependencies is everything the HTTP surface is wired to.
type Dependencies struct {
	DB    controllers.Pinger
	Redis *redis.Client

	Cart          cartcontrollers.CartService
	Coupons       couponcontrollers.CouponService
	Checkout      ordercontrollers.CheckoutService
	Orders        OrderService
	Payments      paymentcontrollers.PaymentLookup
	Products      controllers.ProductService
	Reports       sellercontrollers.ReportReader
	Transactions  sellercontrollers.TransactionLister
	Subscriptions subscriptioncontrollers.SubscriptionService

	StripeClient  *stripe.Client
	StripeWebhook webhookcontrollers.StripeWebhookService
	WebhookGuard  *stripewebhook.IdempotencyGuard

	Metrics  *metrics.CommerceMetrics
	Gatherer prometheus.Gatherer
}

// OrderService is the union of the buyer and seller order handlers' needs.
type OrderService interface {
	ordercontrollers.BuyerOrderService
	ordercontrollers.SellerOrderService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)
	couponPolicy := middleware.NewRateLimitPolicy("coupon", cfg.RateLimit.CouponWindow, cfg.RateLimit.CouponLimit)

	// A nil *redis.Client must reach the middleware as a nil interface.
	var idempotencyStore redis.IdempotencyStore
	var limiter middleware.RateLimiterStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = deps.Redis
	}

	pingers := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Public surfaces.
		var verifier webhookcontrollers.EventVerifier
		if deps.StripeClient != nil {
			verifier = deps.StripeClient
		}
		var guard webhookcontrollers.EventGuard
		if deps.WebhookGuard != nil {
			guard = deps.WebhookGuard
		}
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, verifier, guard, deps.Metrics, logg))
		r.Get("/products/{productId}", controllers.PublicGetProduct(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
				r.Put("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
				r.Put("/items/{itemId}", cartcontrollers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
			})

			r.With(middleware.RateLimit(couponPolicy, limiter, logg)).
				Post("/coupons/apply", couponcontrollers.Apply(deps.Coupons, logg))

			r.Route("/orders", func(r chi.Router) {
				r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).
					Post("/", ordercontrollers.Create(deps.Checkout, logg))
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/items/{itemId}", ordercontrollers.ItemDetail(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.Put("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			})

			r.Get("/payments/{paymentOrderId}", paymentcontrollers.Detail(deps.Payments, logg))

			r.Route("/seller", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleSeller, logg))
				r.Use(middleware.SellerContext(logg))

				r.Get("/orders", ordercontrollers.SellerList(deps.Orders, logg))
				r.Patch("/orders/{orderId}/status/{status}", ordercontrollers.SellerUpdateStatus(deps.Orders, logg))
				r.Delete("/orders/{orderId}", ordercontrollers.SellerDelete(deps.Orders, logg))
				r.Post("/orders/{orderId}/send-to-delivery", ordercontrollers.SendToDelivery(deps.Orders, logg))

				r.Get("/report", sellercontrollers.Report(deps.Reports, logg))
				r.Get("/transactions", sellercontrollers.Transactions(deps.Transactions, logg))
				r.Post("/products", controllers.SellerCreateProduct(deps.Products, logg))

				r.Route("/subscription", func(r chi.Router) {
					r.Get("/plans", subscriptioncontrollers.Plans(deps.Subscriptions, logg))
					r.Get("/current", subscriptioncontrollers.Current(deps.Subscriptions, logg))
					r.Post("/subscribe", subscriptioncontrollers.Subscribe(deps.Subscriptions, logg))
					r.Post("/verify-payment", subscriptioncontrollers.VerifyPayment(deps.Subscriptions, logg))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

				r.Get("/coupons", couponcontrollers.AdminList(deps.Coupons, logg))
				r.Post("/coupons", couponcontrollers.AdminCreate(deps.Coupons, logg))
				r.Delete("/coupons/{couponId}", couponcontrollers.AdminDelete(deps.Coupons, logg))
			})
		})
	})

	return r
}
