package mock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/client"
	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
)

const (
	baseETAMinutes  = 20
	etaMinutesPerKm = 3.0
)

// rejection — отказ с текстом, который уходит клиенту в detail.
type rejection string

func (r rejection) Error() string { return string(r) }

type storedOrder struct {
	dto         client.OrderDTO
	userID      string
	requestHash string
	createdAt   time.Time
}

func (s *Server) listCategories(c *gin.Context) {
	s.mu.Lock()
	out := make([]client.CategoryDTO, 0, len(s.catalog))
	for _, category := range s.catalog {
		if category.IsActive {
			out = append(out, toCategoryDTO(category))
		}
	}
	s.mu.Unlock()

	ok(c, http.StatusOK, out)
}

func (s *Server) listItems(c *gin.Context) {
	var categoryID int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "category_id must be an integer")
			return
		}
		categoryID = id
	}
	onlyAvailable := c.Query("is_available") == "true"
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))

	s.mu.Lock()
	items := make([]client.MenuItemDTO, 0)
	for _, category := range s.catalog {
		if categoryID > 0 && category.ID != categoryID {
			continue
		}
		for _, item := range category.Items {
			if onlyAvailable && !item.Orderable() {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
				continue
			}
			items = append(items, toMenuItemDTO(item))
		}
	}
	s.mu.Unlock()

	ok(c, http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (s *Server) getItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "id must be an integer")
		return
	}

	s.mu.Lock()
	item, found := s.items[id]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "Menu item not found")
		return
	}
	ok(c, http.StatusOK, toMenuItemDTO(item))
}

// quote считает доставку: базовая цена плюс цена километра,
// бесплатно от порога суммы заказа.
func (s *Server) quote(coords domain.Coordinates, orderValue domain.Money) client.DeliveryQuoteDTO {
	distance := pricing.HaversineKm(s.cfg.Origin, coords)
	dto := client.DeliveryQuoteDTO{
		DistanceKm:    math.Round(distance*100) / 100,
		EstimatedTime: baseETAMinutes + int(math.Ceil(distance*etaMinutesPerKm)),
		IsDeliverable: distance <= s.cfg.MaxDistanceKm,
	}
	if !dto.IsDeliverable {
		return dto
	}
	if s.cfg.FreeDeliveryThreshold.IsPositive() && orderValue >= s.cfg.FreeDeliveryThreshold {
		dto.FreeDelivery = true
		return dto
	}
	dto.DeliveryCost = s.cfg.BaseDeliveryCost.Add(domain.Money(math.Round(float64(s.cfg.CostPerKm) * distance)))
	return dto
}

func (s *Server) calculateDelivery(c *gin.Context) {
	var req client.DeliveryRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid delivery request")
		return
	}
	if !req.Coordinates.Known() {
		fail(c, http.StatusBadRequest, "Coordinates are required")
		return
	}
	if req.OrderValue.IsNegative() {
		fail(c, http.StatusBadRequest, "order_value must be non-negative")
		return
	}
	ok(c, http.StatusOK, s.quote(req.Coordinates, req.OrderValue))
}

func (s *Server) getBonuses(c *gin.Context) {
	userID := c.GetString(ctxUserID)

	s.mu.Lock()
	acc := s.accountFor(userID)
	dto := client.BonusBalanceDTO{
		TotalBonusPoints:     acc.total,
		AvailableBonusPoints: acc.available,
		PendingBonusPoints:   acc.pending,
	}
	s.mu.Unlock()

	ok(c, http.StatusOK, dto)
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "id must be an integer")
		return
	}

	s.mu.Lock()
	order, found := s.orders[id]
	s.mu.Unlock()
	if !found || order.userID != c.GetString(ctxUserID) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	ok(c, http.StatusOK, order.dto)
}

func hashOrder(req domain.OrderRequest) string {
	body, _ := json.Marshal(req)
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// priceItems проверяет позиции и считает сумму заказа по ценам меню.
func (s *Server) priceItems(items []domain.OrderItem) (domain.Money, error) {
	var subtotal domain.Money
	for _, line := range items {
		if line.Quantity <= 0 {
			return 0, rejection(fmt.Sprintf("Quantity must be positive for item %d", line.MenuItemID))
		}
		item, found := s.items[line.MenuItemID]
		if !found {
			return 0, rejection(fmt.Sprintf("Menu item %d not found", line.MenuItemID))
		}
		if !item.Orderable() {
			return 0, rejection(item.Name + " is not available")
		}
		price := item.Price
		if line.VariationID != nil {
			variation, found := findVariationByID(item, *line.VariationID)
			if !found {
				return 0, rejection(fmt.Sprintf("Variation %d not found for %s", *line.VariationID, item.Name))
			}
			if !variation.IsAvailable {
				return 0, rejection(fmt.Sprintf("%s (%s) is not available", item.Name, variation.Name))
			}
			price = price.Add(variation.PriceDifference)
		}
		subtotal = subtotal.Add(price.MulInt(line.Quantity))
	}
	return subtotal, nil
}

func findVariationByID(item domain.MenuItem, id int64) (domain.Variation, bool) {
	for _, v := range item.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return domain.Variation{}, false
}

func (s *Server) createOrder(c *gin.Context) {
	var req domain.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid order payload")
		return
	}
	userID := c.GetString(ctxUserID)
	idemKey := strings.TrimSpace(c.GetHeader(client.IdempotencyKeyHeader))
	requestHash := hashOrder(req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if idemKey != "" {
		if id, seen := s.byIdemKey[idemKey]; seen {
			existing := s.orders[id]
			if existing.requestHash != requestHash || existing.userID != userID {
				fail(c, http.StatusConflict, "Idempotency key was already used for another order")
				return
			}
			ok(c, http.StatusOK, existing.dto)
			return
		}
	}

	switch {
	case len(req.Items) == 0:
		fail(c, http.StatusBadRequest, "Order must contain at least one item")
		return
	case !req.OrderType.Valid():
		fail(c, http.StatusBadRequest, "Unsupported order type")
		return
	case !req.PaymentMethod.Valid():
		fail(c, http.StatusBadRequest, "Unsupported payment method")
		return
	case req.OrderType == domain.OrderTypeDelivery && !req.DeliveryAddress.HasStreet():
		fail(c, http.StatusBadRequest, "Delivery address is required")
		return
	}

	subtotal, err := s.priceItems(req.Items)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if subtotal < s.cfg.MinOrderAmount {
		fail(c, http.StatusBadRequest, "Minimum order amount is "+s.cfg.MinOrderAmount.String())
		return
	}

	var deliveryCost domain.Money
	if req.OrderType == domain.OrderTypeDelivery {
		quote := s.quote(req.DeliveryAddress.Coordinates, subtotal)
		if !quote.IsDeliverable {
			fail(c, http.StatusBadRequest, "Delivery is not available to this location")
			return
		}
		deliveryCost = quote.DeliveryCost
	}

	acc := s.accountFor(userID)
	var bonusUsed domain.Money
	if req.BonusToUse != nil {
		bonusUsed = *req.BonusToUse
	}
	if bonusUsed.IsNegative() || bonusUsed > acc.available || bonusUsed > subtotal {
		fail(c, http.StatusBadRequest, "Insufficient bonus points")
		return
	}

	total := subtotal.Add(deliveryCost).Sub(bonusUsed)
	s.nextOrderID++
	id := s.nextOrderID

	paymentStatus := "pending"
	if req.PaymentMethod == domain.PaymentMethodCash {
		paymentStatus = "on_delivery"
	}
	dto := client.OrderDTO{
		ID:            id,
		OrderNumber:   fmt.Sprintf("FO-%06d", id),
		Status:        "pending",
		OrderType:     string(req.OrderType),
		PaymentMethod: string(req.PaymentMethod),
		PaymentStatus: paymentStatus,
		Subtotal:      subtotal,
		DeliveryCost:  deliveryCost,
		BonusUsed:     bonusUsed,
		TotalAmount:   total,
	}

	acc.available = acc.available.Sub(bonusUsed)
	earned := domain.Money(int64(total) * s.cfg.BonusPercent / 100)
	acc.pending = acc.pending.Add(earned)
	acc.total = acc.available.Add(acc.pending)

	s.orders[id] = storedOrder{dto: dto, userID: userID, requestHash: requestHash, createdAt: s.now()}
	if idemKey != "" {
		s.byIdemKey[idemKey] = id
	}

	s.logger.WithFields(log.Fields{
		"order_id":        id,
		"user_id":         userID,
		"total":           total.String(),
		"idempotency_key": idemKey,
	}).Info("mock order created")

	ok(c, http.StatusCreated, dto)
}
