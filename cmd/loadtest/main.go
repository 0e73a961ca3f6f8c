// Команда loadtest нагружает CartService по gRPC и печатает сводку задержек.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/foodorder/internal/service/grpc"
)

type loadMode string

const (
	// modeBrowse читает корзину и считает доставку.
	modeBrowse loadMode = "browse"
	// modeEdit добавляет позицию, меняет количество и удаляет её.
	modeEdit loadMode = "edit"
	// modePreview добавляет позицию и собирает предпросмотр заказа.
	modePreview loadMode = "preview"
)

type config struct {
	addr        string
	total       int
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	menuItemID  int64
	unitPrice   domain.Money
	destination domain.Coordinates
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var (
		cfg       config
		modeValue string
		price     string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "cart service gRPC address")
	fs.IntVar(&cfg.total, "total", 400, "number of scenarios; ignored when -duration is set")
	fs.DurationVar(&cfg.duration, "duration", 0, "run for this long instead of -total scenarios")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeBrowse), "load mode: browse | edit | preview")
	fs.Int64Var(&cfg.menuItemID, "menu-item", 1, "menu item id used by edit/preview")
	fs.StringVar(&price, "unit-price", "", "explicit unit price (skips menu lookup), e.g. 12.99")
	fs.Float64Var(&cfg.destination.Lat, "lat", 55.7601, "delivery latitude")
	fs.Float64Var(&cfg.destination.Lon, "lon", 37.6186, "delivery longitude")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch loadMode(strings.TrimSpace(modeValue)) {
	case modeBrowse, modeEdit, modePreview:
		cfg.mode = loadMode(strings.TrimSpace(modeValue))
	default:
		return cfg, fmt.Errorf("unsupported mode: %s", modeValue)
	}
	if price = strings.TrimSpace(price); price != "" {
		m, err := domain.ParseMoney(price)
		if err != nil {
			return cfg, fmt.Errorf("parse unit-price: %w", err)
		}
		if m.IsNegative() {
			return cfg, errors.New("unit-price must be >= 0")
		}
		cfg.unitPrice = m
	}

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.menuItemID <= 0:
		return cfg, errors.New("menu-item must be > 0")
	}
	return cfg, nil
}

// cartAPI — подмножество клиента CartService, которое нужно сценариям.
type cartAPI interface {
	GetCart(ctx context.Context, in *grpcsvc.GetCartRequest, opts ...grpc.CallOption) (*grpcsvc.CartResponse, error)
	AddItem(ctx context.Context, in *grpcsvc.AddItemRequest, opts ...grpc.CallOption) (*grpcsvc.AddItemResponse, error)
	UpdateQuantity(ctx context.Context, in *grpcsvc.UpdateQuantityRequest, opts ...grpc.CallOption) (*grpcsvc.CartResponse, error)
	RemoveItem(ctx context.Context, in *grpcsvc.RemoveItemRequest, opts ...grpc.CallOption) (*grpcsvc.CartResponse, error)
	QuoteDelivery(ctx context.Context, in *grpcsvc.QuoteDeliveryRequest, opts ...grpc.CallOption) (*grpcsvc.QuoteDeliveryResponse, error)
	PreviewOrder(ctx context.Context, in *grpcsvc.CheckoutRequest, opts ...grpc.CallOption) (*grpcsvc.PreviewOrderResponse, error)
}

type runner struct {
	api cartAPI
	cfg config
	col *collector
}

// call выполняет один RPC с таймаутом и записывает задержку.
func call[T any](r *runner, method string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.timeout)
	defer cancel()

	start := time.Now()
	resp, err := fn(ctx)
	r.col.record(method, time.Since(start), status.Code(err))
	return resp, err
}

func (r *runner) scenario() (err error) {
	start := time.Now()
	defer func() { r.col.record(scenarioMethod, time.Since(start), status.Code(err)) }()

	switch r.cfg.mode {
	case modeBrowse:
		return r.browse()
	case modeEdit:
		return r.edit()
	default:
		return r.preview()
	}
}

func (r *runner) browse() error {
	if _, err := call(r, "GetCart", func(ctx context.Context) (*grpcsvc.CartResponse, error) {
		return r.api.GetCart(ctx, &grpcsvc.GetCartRequest{})
	}); err != nil {
		return err
	}
	_, err := call(r, "QuoteDelivery", func(ctx context.Context) (*grpcsvc.QuoteDeliveryResponse, error) {
		return r.api.QuoteDelivery(ctx, &grpcsvc.QuoteDeliveryRequest{Coordinates: r.cfg.destination})
	})
	return err
}

func (r *runner) addItem() (*grpcsvc.AddItemResponse, error) {
	req := &grpcsvc.AddItemRequest{MenuItemID: r.cfg.menuItemID, Quantity: 1, Notes: "loadtest"}
	if r.cfg.unitPrice > 0 {
		price := r.cfg.unitPrice
		req.UnitPrice = &price
		req.Name = fmt.Sprintf("Load item %d", r.cfg.menuItemID)
	}
	return call(r, "AddItem", func(ctx context.Context) (*grpcsvc.AddItemResponse, error) {
		return r.api.AddItem(ctx, req)
	})
}

func (r *runner) edit() error {
	added, err := r.addItem()
	if err != nil {
		return err
	}
	if _, err := call(r, "UpdateQuantity", func(ctx context.Context) (*grpcsvc.CartResponse, error) {
		return r.api.UpdateQuantity(ctx, &grpcsvc.UpdateQuantityRequest{LineID: added.Line.ID, Quantity: added.Line.Quantity + 1})
	}); err != nil {
		return err
	}
	// Параллельные воркеры правят одну корзину: позицию мог удалить сосед,
	// сервис в этом случае просто возвращает корзину.
	_, err = call(r, "RemoveItem", func(ctx context.Context) (*grpcsvc.CartResponse, error) {
		return r.api.RemoveItem(ctx, &grpcsvc.RemoveItemRequest{LineID: added.Line.ID})
	})
	return err
}

func (r *runner) preview() error {
	if _, err := r.addItem(); err != nil {
		return err
	}
	_, err := call(r, "PreviewOrder", func(ctx context.Context) (*grpcsvc.PreviewOrderResponse, error) {
		return r.api.PreviewOrder(ctx, &grpcsvc.CheckoutRequest{
			OrderType:       domain.OrderTypeDelivery,
			PaymentMethod:   domain.PaymentMethodCash,
			DeliveryAddress: &domain.Address{Street: "Тверская", Building: "1", Coordinates: r.cfg.destination},
		})
	})
	return err
}

// run раздаёт сценарии воркерам и возвращает отчёт.
func run(api cartAPI, cfg config) report {
	r := &runner{api: api, cfg: cfg, col: newCollector()}
	startedAt := time.Now()

	jobs := make(chan struct{}, cfg.concurrency)
	var wg sync.WaitGroup
	for i := 0; i < cfg.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				_ = r.scenario()
			}
		}()
	}

	dispatch(jobs, cfg)
	wg.Wait()
	return r.col.build(string(cfg.mode), startedAt, time.Since(startedAt))
}

func dispatch(jobs chan<- struct{}, cfg config) {
	defer close(jobs)
	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- struct{}{}
		}
		return
	}

	deadline := time.NewTimer(cfg.duration)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return
		case jobs <- struct{}{}:
		}
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conn, err := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	result := run(grpcsvc.NewCartServiceClient(conn), cfg)
	printReport(os.Stdout, result)

	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}
