package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(handler.logger))
	r.Use(Recoverer(handler.logger))
	r.Use(Timeout(timeout))
	r.Use(CORS)

	r.Get("/healthz", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", handler.ListProducts)
		r.Get("/products/low-stock", handler.LowStock)
		r.Post("/products/import-excel", handler.ImportProductsExcel)
		r.Get("/products/{id}", handler.GetProduct)
		r.Post("/products", handler.CreateProduct)
		r.Put("/products/{id}", handler.UpdateProduct)
		r.Delete("/products/{id}", handler.DeleteProduct)
		r.Post("/products/{id}/stock", handler.AdjustStock)

		for path, kind := range partyRoutes {
			r.Get(path, handler.ListParties(kind))
			r.Get(path+"/by-document/{document}", handler.GetPartyByDocument(kind))
			r.Get(path+"/{id}", handler.GetParty(kind))
			r.Post(path, handler.CreateParty(kind))
			r.Put(path+"/{id}", handler.UpdateParty(kind))
			r.Delete(path+"/{id}", handler.DeleteParty(kind))
		}

		for path, kind := range transactionRoutes {
			r.Get(path, handler.ListTransactions(kind))
			r.Get(path+"/{id}", handler.GetTransaction(kind))
			r.Post(path, handler.RecordTransaction(kind))
		}

		r.Post("/returns", handler.RecordReturn)
		r.Get("/returns/{id}", handler.GetReturn)
		r.Get("/returns/by-sale/{saleId}", handler.ListReturnsBySale)

		r.Get("/alerts", handler.ListAlerts)
		r.Get("/alerts/by-product/{productId}", handler.ListAlertsByProduct)

		r.Get("/promotions", handler.ListPromotions)
		r.Get("/promotions/active", handler.ActivePromotions)
		r.Get("/promotions/by-product/{productId}", handler.PromotionsByProduct)
		r.Get("/promotions/{id}", handler.GetPromotion)
		r.Post("/promotions", handler.CreatePromotion)
		r.Put("/promotions/{id}", handler.UpdatePromotion)
		r.Delete("/promotions/{id}", handler.DeletePromotion)
	})

	return r
}
