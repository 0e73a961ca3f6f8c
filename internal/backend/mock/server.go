// Package mock — заглушка бэкенда ресторана для локального запуска и тестов клиента.
// Отдаёт меню, считает доставку, ведёт бонусный счёт и принимает заказы.
package mock

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// Config задаёт тарифы и параметры заглушки.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration

	Origin                domain.Coordinates
	BaseDeliveryCost      domain.Money
	CostPerKm             domain.Money
	FreeDeliveryThreshold domain.Money
	MaxDistanceKm         float64
	MinOrderAmount        domain.Money

	// StartingBonus — баланс, который получает каждый новый пользователь.
	StartingBonus domain.Money
	// BonusPercent — доля суммы заказа, начисляемая в pending после оформления.
	BonusPercent int64
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		JWTSecret:             "foodorder-dev-secret",
		TokenTTL:              30 * time.Minute,
		Origin:                domain.Coordinates{Lat: 55.7558, Lon: 37.6173},
		BaseDeliveryCost:      199,
		CostPerKm:             50,
		FreeDeliveryThreshold: 5000,
		MaxDistanceKm:         15,
		MinOrderAmount:        500,
		StartingBonus:         1000,
		BonusPercent:          5,
	}
}

type account struct {
	available domain.Money
	pending   domain.Money
	total     domain.Money
}

// Server — состояние заглушки. Все данные живут в памяти.
type Server struct {
	cfg    Config
	logger *log.Entry
	now    func() time.Time

	mu          sync.Mutex
	catalog     []domain.Category
	items       map[int64]domain.MenuItem
	accounts    map[string]*account
	orders      map[int64]storedOrder
	byIdemKey   map[string]int64
	nextOrderID int64
}

// New создаёт заглушку с демонстрационным меню.
func New(cfg Config, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "mock-backend")
	}
	defaults := DefaultConfig()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaults.JWTSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if !cfg.Origin.Known() {
		cfg.Origin = defaults.Origin
	}
	if cfg.MaxDistanceKm <= 0 {
		cfg.MaxDistanceKm = defaults.MaxDistanceKm
	}

	catalog := seedCatalog()
	items := make(map[int64]domain.MenuItem)
	for _, category := range catalog {
		for _, item := range category.Items {
			items[item.ID] = item
		}
	}

	return &Server{
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		catalog:     catalog,
		items:       items,
		accounts:    make(map[string]*account),
		orders:      make(map[int64]storedOrder),
		byIdemKey:   make(map[string]int64),
		nextOrderID: 1000,
	}
}

// Handler собирает gin-роутер заглушки.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.POST("/auth/login", s.login)

	menu := router.Group("/menu")
	{
		menu.GET("/categories", s.listCategories)
		menu.GET("/", s.listItems)
		menu.GET("/items/:id", s.getItem)
	}

	router.POST("/delivery/calculate", s.calculateDelivery)

	auth := router.Group("/")
	auth.Use(s.authMiddleware())
	{
		auth.GET("/bonuses/", s.getBonuses)
		auth.POST("/orders/", s.createOrder)
		auth.GET("/orders/:id", s.getOrder)
	}

	return router
}

// SetItemAvailability переключает наличие блюда (стоп-лист).
func (s *Server) SetItemAvailability(id int64, available bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return false
	}
	item.IsOnStopList = !available
	s.items[id] = item
	for ci := range s.catalog {
		for ii := range s.catalog[ci].Items {
			if s.catalog[ci].Items[ii].ID == id {
				s.catalog[ci].Items[ii] = item
			}
		}
	}
	return true
}

// OrderCount возвращает число принятых заказов.
func (s *Server) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("mock backend request")
	}
}

func (s *Server) accountFor(userID string) *account {
	acc, ok := s.accounts[userID]
	if !ok {
		acc = &account{available: s.cfg.StartingBonus, total: s.cfg.StartingBonus}
		s.accounts[userID] = acc
	}
	return acc
}
