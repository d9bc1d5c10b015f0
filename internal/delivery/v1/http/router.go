package http

import (
	_ "github.com/DRSN-tech/product-matcher/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router       *chi.Mux
	logger       logger.Logger
	maxImageSize int64
}

func NewRouter(router *chi.Mux, logger logger.Logger, maxImageSize int64) *Router {
	return &Router{router: router, logger: logger, maxImageSize: maxImageSize}
}

func (r *Router) Init(catalogUC usecase.CatalogUC, matcherUC usecase.MatcherUC, maintenanceUC usecase.MaintenanceUC) {
	r.router.Use(middleware.RequestID, middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		prHandler := NewProductHandler(catalogUC, matcherUC, r.logger, r.maxImageSize)
		mtHandler := NewMaintenanceHandler(maintenanceUC, matcherUC, r.logger)
		registerProductRoutes(v1, prHandler)
		registerMaintenanceRoutes(v1, mtHandler)
	})
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Post("/", prHandler.saveProduct)
		pr.Get("/", prHandler.listProducts)
		pr.Get("/{article}", prHandler.getProduct)
		pr.Delete("/{article}", prHandler.deleteProduct)
		pr.Get("/{article}/similar", prHandler.similarProducts)
	})

	router.Post("/matches", prHandler.matchImage)
}

func registerMaintenanceRoutes(router chi.Router, mtHandler *MaintenanceHandler) {
	router.Post("/suggestions", mtHandler.suggest)

	router.Route("/maintenance", func(mr chi.Router) {
		mr.Get("/stats", mtHandler.stats)
		mr.Post("/sweep", mtHandler.sweep)
		mr.Post("/backfill", mtHandler.backfill)
	})
}
