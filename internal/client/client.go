// Package client — HTTP-клиент API ресторана: меню, доставка, бонусы и заказы.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/version"
)

const (
	defaultTimeout = 10 * time.Second

	// IdempotencyKeyHeader передаётся при создании заказа.
	IdempotencyKeyHeader = "Idempotency-Key"

	pathCategories = "/menu/categories"
	pathMenu       = "/menu/"
	pathMenuItem   = "/menu/items/{id}"
	pathDelivery   = "/delivery/calculate"
	pathBonuses    = "/bonuses/"
	pathOrders     = "/orders/"
)

// Config задаёт параметры клиента.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client реализует порты MenuAPI, DeliveryAPI, BonusAPI и OrderAPI.
type Client struct {
	http   *resty.Client
	tokens *TokenStore
	logger *log.Entry
}

// New создаёт клиент. tokens может быть nil: тогда запросы идут без авторизации.
func New(cfg Config, tokens *TokenStore, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "api-client")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())

	return &Client{http: httpClient, tokens: tokens, logger: logger}
}

// Resty возвращает нижележащий resty-клиент (для тестов и тонкой настройки транспорта).
func (c *Client) Resty() *resty.Client { return c.http }

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token, ok := c.tokens.Token(ctx); ok {
		req.SetAuthToken(token)
	}
	return req
}

// do выполняет запрос и возвращает data из конверта.
func (c *Client) do(ctx context.Context, req *resty.Request, method, path string) (json.RawMessage, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := c.checkStatus(ctx, resp, method, path); err != nil {
		return nil, err
	}
	return unwrapData(resp.Body())
}

func (c *Client) checkStatus(ctx context.Context, resp *resty.Response, method, path string) error {
	if resp.StatusCode() == http.StatusUnauthorized {
		c.tokens.Clear(ctx)
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrUnauthorized)
	}
	if resp.IsError() {
		msg := errorMessage(resp.Body())
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode(), msg)
	}
	return nil
}

// Categories возвращает разделы меню.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	data, err := c.do(ctx, c.request(ctx), resty.MethodGet, pathCategories)
	if err != nil {
		return nil, err
	}
	raw, err := decodeList[CategoryDTO](data, "categories")
	if err != nil {
		return nil, err
	}

	out := make([]domain.Category, 0, len(raw))
	for _, dto := range raw {
		category, err := dto.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, nil
}

// MenuItems возвращает блюда по фильтру.
func (c *Client) MenuItems(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error) {
	req := c.request(ctx)
	if filter.CategoryID > 0 {
		req.SetQueryParam("category_id", strconv.FormatInt(filter.CategoryID, 10))
	}
	if filter.OnlyInStock {
		req.SetQueryParam("is_available", "true")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		req.SetQueryParam("search", search)
	}

	data, err := c.do(ctx, req, resty.MethodGet, pathMenu)
	if err != nil {
		return nil, err
	}
	raw, err := decodeList[MenuItemDTO](data, "items")
	if err != nil {
		return nil, err
	}

	out := make([]domain.MenuItem, 0, len(raw))
	for _, dto := range raw {
		item, err := dto.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// MenuItem возвращает блюдо по идентификатору.
func (c *Client) MenuItem(ctx context.Context, id int64) (domain.MenuItem, error) {
	req := c.request(ctx).SetPathParam("id", strconv.FormatInt(id, 10))
	data, err := c.do(ctx, req, resty.MethodGet, pathMenuItem)
	if err != nil {
		return domain.MenuItem{}, err
	}
	dto, err := decodeObject[MenuItemDTO](data, "menu item")
	if err != nil {
		return domain.MenuItem{}, err
	}
	return dto.ToDomain()
}

// CalculateDelivery запрашивает расчёт доставки.
func (c *Client) CalculateDelivery(ctx context.Context, in domain.DeliveryQuoteRequest) (domain.DeliveryQuote, error) {
	req := c.request(ctx).SetBody(DeliveryRequestDTO{
		Coordinates: in.Coordinates,
		OrderValue:  in.OrderValue,
	})
	data, err := c.do(ctx, req, resty.MethodPost, pathDelivery)
	if err != nil {
		return domain.DeliveryQuote{}, err
	}
	dto, err := decodeObject[DeliveryQuoteDTO](data, "delivery quote")
	if err != nil {
		return domain.DeliveryQuote{}, err
	}
	return dto.ToDomain()
}

// Bonuses возвращает состояние бонусного счёта.
func (c *Client) Bonuses(ctx context.Context) (domain.BonusBalance, error) {
	data, err := c.do(ctx, c.request(ctx), resty.MethodGet, pathBonuses)
	if err != nil {
		return domain.BonusBalance{}, err
	}
	dto, err := decodeObject[BonusBalanceDTO](data, "bonus balance")
	if err != nil {
		return domain.BonusBalance{}, err
	}
	return dto.ToDomain()
}

// CreateOrder создаёт заказ. Отказ API возвращается как *domain.SubmissionError
// с текстом сервера без изменений.
func (c *Client) CreateOrder(ctx context.Context, order domain.OrderRequest, idempotencyKey string) (domain.CreatedOrder, error) {
	req := c.request(ctx).SetBody(order)
	if idempotencyKey != "" {
		req.SetHeader(IdempotencyKeyHeader, idempotencyKey)
	}

	resp, err := req.Post(pathOrders)
	if err != nil {
		return domain.CreatedOrder{}, &domain.SubmissionError{Err: fmt.Errorf("POST %s: %w", pathOrders, err)}
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		c.tokens.Clear(ctx)
	}
	if resp.IsError() {
		c.logger.WithFields(log.Fields{
			"status":          resp.StatusCode(),
			"idempotency_key": idempotencyKey,
		}).Warn("order api rejected submission")
		return domain.CreatedOrder{}, &domain.SubmissionError{
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp.Body()),
		}
	}

	data, err := unwrapData(resp.Body())
	if err != nil {
		return domain.CreatedOrder{}, &domain.SubmissionError{StatusCode: resp.StatusCode(), Err: err}
	}
	dto, err := decodeObject[OrderDTO](data, "order")
	if err != nil {
		return domain.CreatedOrder{}, &domain.SubmissionError{StatusCode: resp.StatusCode(), Err: err}
	}
	created, err := dto.ToDomain()
	if err != nil {
		return domain.CreatedOrder{}, &domain.SubmissionError{StatusCode: resp.StatusCode(), Err: err}
	}
	return created, nil
}

var (
	_ domain.MenuAPI     = (*Client)(nil)
	_ domain.DeliveryAPI = (*Client)(nil)
	_ domain.BonusAPI    = (*Client)(nil)
	_ domain.OrderAPI    = (*Client)(nil)
)
