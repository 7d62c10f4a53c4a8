// Package api exposes the scraper and product store over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/scraper"
	"github.com/aluiziolira/go-scrape-products/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Server wires the HTTP layer to the orchestrator and store.
type Server struct {
	cfg   *config.Config
	store *store.Store
	orch  *scraper.Orchestrator
}

// New builds an API server. The orchestrator's metrics registry backs
// the /metrics endpoint.
func New(cfg *config.Config, st *store.Store, orch *scraper.Orchestrator) *Server {
	return &Server{cfg: cfg, store: st, orch: orch}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		s.orch.Metrics.Registry, promhttp.HandlerOpts{},
	)))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/scrape/start", s.startScrapeAll)
		v1.POST("/scrape/website/:name", s.startScrapeWebsite)
		v1.GET("/scrape/status", s.scrapeStatus)
		v1.GET("/scrape/config", s.scrapeConfig)

		v1.GET("/products", s.listProducts)
		v1.POST("/products", s.createProduct)
		v1.GET("/products/website/:website", s.productsByWebsite)
		v1.GET("/products/price-range/:min/:max", s.productsByPriceRange)
		v1.GET("/products/:id", s.getProduct)
		v1.PUT("/products/:id", s.updateProduct)
		v1.DELETE("/products/:id", s.deleteProduct)
	}
	return engine
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) startScrapeAll(c *gin.Context) {
	results, err := s.orch.ScrapeAll(c.Request.Context())
	if err != nil {
		if errors.Is(err, scraper.ErrAlreadyScraping) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scraping already in progress"})
			return
		}
		s.internalError(c, "scrape all", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "scraping completed",
		"results": results,
	})
}

func (s *Server) startScrapeWebsite(c *gin.Context) {
	name := c.Param("name")
	category := c.Query("category")

	products, err := s.orch.ScrapeWebsiteByName(c.Request.Context(), name, category)
	if err != nil {
		var unknown scraper.ErrUnknownWebsite
		switch {
		case errors.As(err, &unknown):
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "website not found",
				"available": s.cfg.WebsiteNames(),
			})
		case errors.Is(err, scraper.ErrAlreadyScraping):
			c.JSON(http.StatusBadRequest, gin.H{"error": "scraping already in progress"})
		default:
			s.internalError(c, "scrape website", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "scraping completed for " + name,
		"productsCount": len(products),
		"category":      category,
	})
}

func (s *Server) scrapeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.GetStatus())
}

func (s *Server) scrapeConfig(c *gin.Context) {
	websites := make([]gin.H, 0, len(s.cfg.Websites))
	for _, site := range s.cfg.Websites {
		websites = append(websites, gin.H{"name": site.Name, "url": site.URL})
	}
	c.JSON(http.StatusOK, gin.H{
		"scrapeInterval": s.cfg.ScrapeInterval.String(),
		"websites":       websites,
		"categories":     s.cfg.Categories,
	})
}

func (s *Server) listProducts(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	q := store.Query{}
	if category := c.Query("category"); category != "" {
		q["category"] = store.Eq(category)
	}
	minPrice, hasMin, ok := queryFloat(c, "minPrice")
	if !ok {
		return
	}
	maxPrice, hasMax, ok := queryFloat(c, "maxPrice")
	if !ok {
		return
	}
	switch {
	case hasMin && hasMax:
		q["price"] = store.Range(minPrice, maxPrice)
	case hasMin:
		q["price"] = store.Gte(minPrice)
	case hasMax:
		q["price"] = store.Lte(maxPrice)
	}
	if rating, has, ok := queryFloat(c, "rating"); !ok {
		return
	} else if has {
		q["rating"] = store.Gte(rating)
	}

	products, err := s.store.Find(q)
	if err != nil {
		s.internalError(c, "list products", err)
		return
	}
	s.paginated(c, products, page, limit)
}

func (s *Server) productsByWebsite(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	products, err := s.store.Find(store.Query{
		"source.website": store.Eq(c.Param("website")),
	})
	if err != nil {
		s.internalError(c, "products by website", err)
		return
	}
	s.paginated(c, products, page, limit)
}

func (s *Server) productsByPriceRange(c *gin.Context) {
	min, err := strconv.ParseFloat(c.Param("min"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minimum price"})
		return
	}
	max, err := strconv.ParseFloat(c.Param("max"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maximum price"})
		return
	}
	if min > max {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minimum price exceeds maximum"})
		return
	}
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	products, err := s.store.Find(store.Query{"price": store.Range(min, max)})
	if err != nil {
		s.internalError(c, "products by price range", err)
		return
	}
	s.paginated(c, products, page, limit)
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.store.FindByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.internalError(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type productRequest struct {
	Name        string                `json:"name" binding:"required"`
	Price       float64               `json:"price" binding:"required,gte=0"`
	Description string                `json:"description"`
	Rating      float64               `json:"rating" binding:"gte=0,lte=5"`
	Category    string                `json:"category"`
	Images      []models.ProductImage `json:"images"`
	Source      models.ProductSource  `json:"source"`
}

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product", "details": err.Error()})
		return
	}
	created, err := s.store.Create(models.Product{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Rating:      req.Rating,
		Category:    req.Category,
		Images:      req.Images,
		Source:      req.Source,
	})
	if err != nil {
		s.internalError(c, "create product", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateProduct(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patch", "details": err.Error()})
		return
	}
	updated, err := s.store.Update(c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.internalError(c, "update product", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteProduct(c *gin.Context) {
	removed, err := s.store.Delete(c.Param("id"))
	if err != nil {
		s.internalError(c, "delete product", err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// paginated slices the full result set and writes the list envelope.
func (s *Server) paginated(c *gin.Context, products []models.Product, page, limit int) {
	total := len(products)
	window := store.Page(products, page, limit)
	if window == nil {
		window = []models.Product{}
	}
	c.JSON(http.StatusOK, gin.H{
		"products": window,
		"total":    total,
		"page":     page,
		"pages":    (total + limit - 1) / limit,
	})
}

// internalError hides detail in production, surfaces it elsewhere.
func (s *Server) internalError(c *gin.Context, op string, err error) {
	slog.Error(op+" failed", slog.Any("error", err))
	body := gin.H{"error": "internal server error"}
	if s.cfg.Environment != "production" {
		body["detail"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func pagination(c *gin.Context) (page, limit int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, 0, false
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, 0, false
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, true
}

func queryFloat(c *gin.Context, name string) (value float64, present, ok bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, true
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false, false
	}
	return value, true, true
}
