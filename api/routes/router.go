package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	addressctrl "github.com/pizzabox/pizzabox-backend/api/controllers/addresses"
	cartctrl "github.com/pizzabox/pizzabox-backend/api/controllers/cart"
	healthctrl "github.com/pizzabox/pizzabox-backend/api/controllers/health"
	menuctrl "github.com/pizzabox/pizzabox-backend/api/controllers/menu"
	notificationctrl "github.com/pizzabox/pizzabox-backend/api/controllers/notifications"
	orderctrl "github.com/pizzabox/pizzabox-backend/api/controllers/orders"
	paymentctrl "github.com/pizzabox/pizzabox-backend/api/controllers/payments"
	wsctrl "github.com/pizzabox/pizzabox-backend/api/controllers/ws"
	apimiddleware "github.com/pizzabox/pizzabox-backend/api/middleware"
	addresssvc "github.com/pizzabox/pizzabox-backend/internal/address"
	cartsvc "github.com/pizzabox/pizzabox-backend/internal/cart"
	catalogsvc "github.com/pizzabox/pizzabox-backend/internal/catalog"
	notificationsvc "github.com/pizzabox/pizzabox-backend/internal/notifications"
	ordersvc "github.com/pizzabox/pizzabox-backend/internal/orders"
	paymentsvc "github.com/pizzabox/pizzabox-backend/internal/payments"
	"github.com/pizzabox/pizzabox-backend/pkg/config"
	"github.com/pizzabox/pizzabox-backend/pkg/db"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
	pkgredis "github.com/pizzabox/pizzabox-backend/pkg/redis"
)

// Deps bundles everything the router needs to mount the API surface.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *db.Client
	Redis *pkgredis.Client

	Catalog       catalogsvc.Service
	Cart          cartsvc.Service
	Orders        ordersvc.Service
	Payments      paymentsvc.Service
	Addresses     addresssvc.Service
	Notifications notificationsvc.Service
	Hub           *notificationsvc.Hub
}

// New builds the HTTP router with the full middleware chain and route tree.
func New(deps Deps) http.Handler {
	logg := deps.Logger
	jwtCfg := deps.Config.JWT

	r := chi.NewRouter()
	r.Use(apimiddleware.Recoverer(logg))
	r.Use(apimiddleware.RequestID(logg))
	r.Use(apimiddleware.Logging(logg))
	r.Use(apimiddleware.CORS(deps.Config.App.CORSOrigins...))

	r.Get("/health/live", healthctrl.Live())
	r.Get("/health/ready", healthctrl.Ready(deps.DB, deps.Redis, logg))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/menu", menuctrl.GetMenu(deps.Catalog, logg))

		// Cart works for both guests and logged-in users; identity is
		// optional and the guest token header fills the gap.
		r.Route("/cart", func(r chi.Router) {
			r.Use(apimiddleware.OptionalAuth(jwtCfg, logg))
			r.Get("/", cartctrl.GetCart(deps.Cart, logg))
			r.Post("/items", cartctrl.AddItem(deps.Cart, logg))
			r.Patch("/items/{itemID}", cartctrl.UpdateItemQuantity(deps.Cart, logg))
			r.Delete("/items/{itemID}", cartctrl.RemoveItem(deps.Cart, logg))
			r.Delete("/", cartctrl.Clear(deps.Cart, logg))
			r.Post("/merge", cartctrl.Merge(deps.Cart, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.Auth(jwtCfg, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderctrl.Create(deps.Orders, logg))
				r.Get("/", orderctrl.ListMine(deps.Orders, logg))
				r.Get("/{orderNo}", orderctrl.GetMine(deps.Orders, logg))
				r.Post("/{orderNo}/cancel", orderctrl.CancelMine(deps.Orders, logg))
				r.Get("/{orderNo}/payments", paymentctrl.ListByOrder(deps.Payments, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/order", paymentctrl.CreateGatewayOrder(deps.Payments, logg))
				r.Post("/verify", paymentctrl.Verify(deps.Payments, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", addressctrl.List(deps.Addresses, logg))
				r.Post("/", addressctrl.Create(deps.Addresses, logg))
				r.Get("/{addressID}", addressctrl.Get(deps.Addresses, logg))
				r.Put("/{addressID}", addressctrl.Update(deps.Addresses, logg))
				r.Delete("/{addressID}", addressctrl.Delete(deps.Addresses, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationctrl.List(deps.Notifications, logg))
				r.Post("/read", notificationctrl.MarkRead(deps.Notifications, logg))
				r.Post("/read-all", notificationctrl.MarkAllRead(deps.Notifications, logg))
				r.Delete("/{notificationID}", notificationctrl.Delete(deps.Notifications, logg))
			})

			r.Get("/ws", wsctrl.ConnectUser(deps.Hub, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.Auth(jwtCfg, logg))
			r.Use(apimiddleware.RequireRole(enums.UserRoleAdmin, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Route("/menu", func(r chi.Router) {
					r.Post("/pizzas", menuctrl.CreatePizza(deps.Catalog, logg))
					r.Put("/pizzas/{pizzaID}", menuctrl.UpdatePizza(deps.Catalog, logg))
					r.Patch("/pizzas/{pizzaID}/availability", menuctrl.SetPizzaAvailability(deps.Catalog, logg))
					r.Post("/sizes", menuctrl.CreateSize(deps.Catalog, logg))
					r.Patch("/sizes/{sizeID}/availability", menuctrl.SetSizeAvailability(deps.Catalog, logg))
					r.Post("/crusts", menuctrl.CreateCrust(deps.Catalog, logg))
					r.Patch("/crusts/{crustID}/availability", menuctrl.SetCrustAvailability(deps.Catalog, logg))
					r.Post("/toppings", menuctrl.CreateTopping(deps.Catalog, logg))
				})

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", orderctrl.List(deps.Orders, logg))
					r.Get("/stats", orderctrl.GetStats(deps.Orders, logg))
					r.Patch("/{orderNo}/status", orderctrl.UpdateStatus(deps.Orders, logg))
				})

				r.Get("/ws", wsctrl.ConnectAdmin(deps.Hub, logg))
			})
		})
	})

	return r
}
