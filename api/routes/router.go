package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranacart/kiranacart-backend/api/controllers"
	"github.com/kiranacart/kiranacart-backend/api/middleware"
	checkoutsvc "github.com/kiranacart/kiranacart-backend/internal/checkout"
	orderssvc "github.com/kiranacart/kiranacart-backend/internal/orders"
	paymentssvc "github.com/kiranacart/kiranacart-backend/internal/payments"
	riderssvc "github.com/kiranacart/kiranacart-backend/internal/riders"
	shopssvc "github.com/kiranacart/kiranacart-backend/internal/shops"
	"github.com/kiranacart/kiranacart-backend/pkg/config"
	"github.com/kiranacart/kiranacart-backend/pkg/db"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
	"github.com/kiranacart/kiranacart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	checkoutService checkoutsvc.Service,
	ordersService orderssvc.Service,
	paymentsService paymentssvc.Service,
	shopsService shopssvc.Service,
	ridersService riderssvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", controllers.RazorpayWebhook(paymentsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/quote", controllers.CheckoutQuote(checkoutService, logg))
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))
		r.Post("/payments/verify", controllers.PaymentVerify(paymentsService, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.OrderDetail(ordersService, logg))
			r.Post("/accept", controllers.OrderAccept(ordersService, logg))
			r.Post("/assign-rider", controllers.OrderAssignRider(ordersService, logg))
			r.Post("/out-for-delivery", controllers.OrderOutForDelivery(ordersService, logg))
			r.Post("/delivered", controllers.OrderDelivered(ordersService, logg))
			r.Post("/cancel", controllers.OrderCancel(ordersService, logg))
			r.Post("/pay", controllers.OrderRetryPayment(paymentsService, logg))
		})

		r.Route("/shops/{shopId}", func(r chi.Router) {
			r.Get("/delivery-settings", controllers.ShopDeliverySettings(shopsService, logg))
			r.Put("/delivery-settings", controllers.ShopUpdateDeliverySettings(shopsService, logg))
			r.Get("/riders", controllers.ShopAvailableRiders(ridersService, logg))
		})

		r.Post("/riders/availability", controllers.RiderAvailability(ridersService, logg))
	})

	return r
}
