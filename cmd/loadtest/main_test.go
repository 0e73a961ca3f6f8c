package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/foodorder/internal/service/grpc"
)

type fakeCart struct {
	mu         sync.Mutex
	calls      map[string]int
	addReqs    []*grpcsvc.AddItemRequest
	failQuote  bool
	failRemove bool
}

func newFakeCart() *fakeCart { return &fakeCart{calls: map[string]int{}} }

func (f *fakeCart) hit(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *fakeCart) GetCart(context.Context, *grpcsvc.GetCartRequest, ...grpc.CallOption) (*grpcsvc.CartResponse, error) {
	f.hit("GetCart")
	return &grpcsvc.CartResponse{}, nil
}

func (f *fakeCart) AddItem(_ context.Context, in *grpcsvc.AddItemRequest, _ ...grpc.CallOption) (*grpcsvc.AddItemResponse, error) {
	f.hit("AddItem")
	f.mu.Lock()
	f.addReqs = append(f.addReqs, in)
	f.mu.Unlock()
	return &grpcsvc.AddItemResponse{Line: domain.CartLine{ID: 1, Quantity: 1}}, nil
}

func (f *fakeCart) UpdateQuantity(context.Context, *grpcsvc.UpdateQuantityRequest, ...grpc.CallOption) (*grpcsvc.CartResponse, error) {
	f.hit("UpdateQuantity")
	return &grpcsvc.CartResponse{}, nil
}

func (f *fakeCart) RemoveItem(context.Context, *grpcsvc.RemoveItemRequest, ...grpc.CallOption) (*grpcsvc.CartResponse, error) {
	f.hit("RemoveItem")
	if f.failRemove {
		return nil, status.Error(codes.Unavailable, "down")
	}
	return &grpcsvc.CartResponse{}, nil
}

func (f *fakeCart) QuoteDelivery(context.Context, *grpcsvc.QuoteDeliveryRequest, ...grpc.CallOption) (*grpcsvc.QuoteDeliveryResponse, error) {
	f.hit("QuoteDelivery")
	if f.failQuote {
		return nil, status.Error(codes.Unavailable, "down")
	}
	return &grpcsvc.QuoteDeliveryResponse{}, nil
}

func (f *fakeCart) PreviewOrder(context.Context, *grpcsvc.CheckoutRequest, ...grpc.CallOption) (*grpcsvc.PreviewOrderResponse, error) {
	f.hit("PreviewOrder")
	return &grpcsvc.PreviewOrderResponse{}, nil
}

func testConfig(mode loadMode) config {
	return config{total: 12, concurrency: 3, timeout: time.Second, mode: mode, menuItemID: 7}
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)
	require.Equal(t, modeBrowse, cfg.mode)
	require.Equal(t, 400, cfg.total)
	require.Equal(t, domain.Zero, cfg.unitPrice)

	cfg, err = parseConfig([]string{"-mode=preview", "-unit-price=12.99", "-duration=1m"})
	require.NoError(t, err)
	require.Equal(t, modePreview, cfg.mode)
	require.Equal(t, domain.Money(1299), cfg.unitPrice)
	require.Equal(t, time.Minute, cfg.duration)

	for name, args := range map[string][]string{
		"mode":        {"-mode=checkout"},
		"price":       {"-unit-price=abc"},
		"neg price":   {"-unit-price=-1"},
		"total":       {"-total=0"},
		"concurrency": {"-concurrency=0"},
		"timeout":     {"-timeout=0s"},
		"menu item":   {"-menu-item=0"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(args)
			require.Error(t, err)
		})
	}
}

func TestRun_Browse(t *testing.T) {
	api := newFakeCart()
	result := run(api, testConfig(modeBrowse))

	require.Equal(t, int64(12), result.Scenarios)
	require.Zero(t, result.FailedScenarios)
	require.Equal(t, 12, api.calls["GetCart"])
	require.Equal(t, 12, api.calls["QuoteDelivery"])
	require.Equal(t, int64(12), result.Methods["QuoteDelivery"].Calls)
	require.NotContains(t, result.Methods, scenarioMethod)
}

func TestRun_Edit(t *testing.T) {
	api := newFakeCart()
	result := run(api, testConfig(modeEdit))

	require.Zero(t, result.FailedScenarios)
	require.Equal(t, 12, api.calls["UpdateQuantity"])
	require.Equal(t, 12, api.calls["RemoveItem"])
}

func TestRun_EditRemoveFailureFailsScenario(t *testing.T) {
	api := newFakeCart()
	api.failRemove = true
	result := run(api, testConfig(modeEdit))

	require.Equal(t, int64(12), result.FailedScenarios)
	require.Equal(t, int64(12), result.Methods["RemoveItem"].Failed)
	require.Equal(t, int64(12), result.Methods["RemoveItem"].Codes[codes.Unavailable.String()])
}

func TestRun_PreviewWithExplicitPrice(t *testing.T) {
	api := newFakeCart()
	cfg := testConfig(modePreview)
	cfg.unitPrice = 1299
	result := run(api, cfg)

	require.Zero(t, result.FailedScenarios)
	require.Equal(t, 12, api.calls["PreviewOrder"])
	for _, req := range api.addReqs {
		require.NotNil(t, req.UnitPrice)
		require.Equal(t, domain.Money(1299), *req.UnitPrice)
		require.NotEmpty(t, req.Name)
	}
}

func TestRun_FailuresCounted(t *testing.T) {
	api := newFakeCart()
	api.failQuote = true
	result := run(api, testConfig(modeBrowse))

	require.Equal(t, int64(12), result.FailedScenarios)
	require.InDelta(t, 1.0, result.ErrorRate, 1e-9)
}

func TestRun_Duration(t *testing.T) {
	cfg := testConfig(modeBrowse)
	cfg.total = 0
	cfg.duration = 50 * time.Millisecond
	result := run(newFakeCart(), cfg)
	require.Positive(t, result.Scenarios)
}

func TestSummarize(t *testing.T) {
	require.Equal(t, latencySummary{}, summarize(nil))

	s := summarize([]float64{4, 1, 3, 2, 5})
	require.Equal(t, 1.0, s.Min)
	require.Equal(t, 5.0, s.Max)
	require.Equal(t, 3.0, s.Avg)
	require.Equal(t, 3.0, s.P50)
	require.InDelta(t, 4.8, s.P95, 1e-9)
	require.Equal(t, 7.0, percentile([]float64{7}, 99))
}

func TestReportOutput(t *testing.T) {
	col := newCollector()
	col.record("GetCart", 2*time.Millisecond, codes.OK)
	col.record(scenarioMethod, 3*time.Millisecond, codes.OK)
	r := col.build("browse", time.Now(), time.Second)

	var buf bytes.Buffer
	printReport(&buf, r)
	require.Contains(t, buf.String(), "mode=browse scenarios=1")
	require.Contains(t, buf.String(), "GetCart")

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, writeJSONReport("report.json", r))
	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var decoded report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, int64(1), decoded.Scenarios)

	require.Error(t, writeJSONReport(".", r))
	require.Error(t, writeJSONReport("../escape.json", r))
}
