package api

import (
	"errors"
	"net/http"

	"ecfresh/internal/auth"
	"ecfresh/internal/logger"
	"ecfresh/internal/repository"
	"ecfresh/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Router holds everything the HTTP surface is built from.
type Router struct {
	Catalog   *CatalogHandler
	Cart      *CartHandler
	Checkout  *CheckoutHandler
	Orders    *OrderHandler
	Admin     *AdminHandler
	AdminAuth *AdminAuthHandler
	Stripe    *StripeWebhookHandler
	// Accounts links guest checkouts to customers on their first signed-in request.
	Accounts *service.AccountService

	AdminSecret    string
	CustomerSecret string
	CORSOrigins    []string
	Log            *zap.Logger
}

func (rt Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Storefront
	api.HandleFunc("/banners", rt.Catalog.Banners).Methods("GET")
	api.HandleFunc("/categories", rt.Catalog.Categories).Methods("GET")
	api.HandleFunc("/products", rt.Catalog.Products).Methods("GET")
	api.HandleFunc("/products/{id}", rt.Catalog.Product).Methods("GET")
	api.HandleFunc("/delivery/slots", rt.Catalog.DeliverySlots).Methods("GET")

	api.HandleFunc("/cart", rt.Cart.Create).Methods("POST")
	api.HandleFunc("/cart/{cartID}", rt.Cart.Get).Methods("GET")
	api.HandleFunc("/cart/{cartID}", rt.Cart.Clear).Methods("DELETE")
	api.HandleFunc("/cart/{cartID}/items", rt.Cart.AddItem).Methods("POST")
	api.HandleFunc("/cart/{cartID}/items", rt.Cart.SetQuantity).Methods("PUT")
	api.HandleFunc("/cart/{cartID}/items", rt.Cart.RemoveItem).Methods("DELETE")

	optional := auth.CustomerAuthMiddleware(rt.CustomerSecret, false)
	api.Handle("/checkout/quote", optional(http.HandlerFunc(rt.Checkout.Quote))).Methods("POST")
	api.Handle("/checkout/orders", optional(http.HandlerFunc(rt.Checkout.PlaceOrder))).Methods("POST")

	api.HandleFunc("/stripe/webhook", rt.Stripe.HandleWebhook).Methods("POST")

	// Signed-in customer
	me := api.PathPrefix("/me").Subrouter()
	me.Use(auth.CustomerAuthMiddleware(rt.CustomerSecret, true))
	if rt.Accounts != nil {
		me.Use(linkAccount(rt.Accounts, rt.Log))
	}
	me.HandleFunc("/orders", rt.Orders.List).Methods("GET")
	me.HandleFunc("/orders/{id}", rt.Orders.Get).Methods("GET")
	me.HandleFunc("/orders/{id}/cancel", rt.Orders.Cancel).Methods("POST")

	// Admin
	r.HandleFunc("/admin/login", rt.AdminAuth.Login).Methods("POST")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware(rt.AdminSecret))
	admin.HandleFunc("/admins", rt.AdminAuth.CreateUserAdmin).Methods("POST")

	admin.HandleFunc("/banners", rt.Admin.ListBanners).Methods("GET")
	admin.HandleFunc("/banners", rt.Admin.CreateBanner).Methods("POST")
	admin.HandleFunc("/banners/{id}", rt.Admin.UpdateBanner).Methods("PUT")
	admin.HandleFunc("/banners/{id}", rt.Admin.DeleteBanner).Methods("DELETE")

	admin.HandleFunc("/categories", rt.Admin.ListCategories).Methods("GET")
	admin.HandleFunc("/categories", rt.Admin.CreateCategory).Methods("POST")
	admin.HandleFunc("/categories/{id}", rt.Admin.UpdateCategory).Methods("PUT")
	admin.HandleFunc("/categories/{id}", rt.Admin.DeleteCategory).Methods("DELETE")

	admin.HandleFunc("/products", rt.Admin.ListProducts).Methods("GET")
	admin.HandleFunc("/products", rt.Admin.CreateProduct).Methods("POST")
	admin.HandleFunc("/products/import", rt.Admin.ImportProducts).Methods("POST")
	admin.HandleFunc("/products/export", rt.Admin.ExportProducts).Methods("GET")
	admin.HandleFunc("/products/template", rt.Admin.ProductTemplate).Methods("GET")
	admin.HandleFunc("/products/{id}", rt.Admin.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/products/{id}", rt.Admin.DeleteProduct).Methods("DELETE")

	admin.HandleFunc("/orders", rt.Admin.ListOrders).Methods("GET")
	admin.HandleFunc("/orders/export", rt.Admin.ExportOrders).Methods("GET")
	admin.HandleFunc("/orders/{id}/status", rt.Admin.UpdateOrderStatus).Methods("PUT")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(rt.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(rt.Log)))
	return logger.AccessLog(rt.Log)(recovery(cors(r)))
}

// linkAccount resolves the signed-in customer's account before /me handlers
// run, so orders placed as a guest show up in their history.
func linkAccount(accounts *service.AccountService, log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, _ := auth.CustomerFrom(r.Context())
			if _, err := accounts.Resolve(r.Context(), c); err != nil && !errors.Is(err, repository.ErrNotFound) {
				fail(w, log, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
