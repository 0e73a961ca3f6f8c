package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
)

// CartServiceClient — клиент foodorder.v1.CartService.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCartServiceClient создаёт клиент поверх соединения.
func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartServiceClient) GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodGetCart, in, opts)
}

func (c *CartServiceClient) AddItem(ctx context.Context, in *AddItemRequest, opts ...grpc.CallOption) (*AddItemResponse, error) {
	return invoke[AddItemResponse](ctx, c.cc, methodAddItem, in, opts)
}

func (c *CartServiceClient) UpdateQuantity(ctx context.Context, in *UpdateQuantityRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodUpdateQuantity, in, opts)
}

func (c *CartServiceClient) RemoveItem(ctx context.Context, in *RemoveItemRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodRemoveItem, in, opts)
}

func (c *CartServiceClient) ClearCart(ctx context.Context, in *ClearCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, methodClearCart, in, opts)
}

func (c *CartServiceClient) QuoteDelivery(ctx context.Context, in *QuoteDeliveryRequest, opts ...grpc.CallOption) (*QuoteDeliveryResponse, error) {
	return invoke[QuoteDeliveryResponse](ctx, c.cc, methodQuoteDelivery, in, opts)
}

func (c *CartServiceClient) AllocateBonus(ctx context.Context, in *AllocateBonusRequest, opts ...grpc.CallOption) (*AllocateBonusResponse, error) {
	return invoke[AllocateBonusResponse](ctx, c.cc, methodAllocateBonus, in, opts)
}

func (c *CartServiceClient) PreviewOrder(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*PreviewOrderResponse, error) {
	return invoke[PreviewOrderResponse](ctx, c.cc, methodPreviewOrder, in, opts)
}

func (c *CartServiceClient) SubmitOrder(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*SubmitOrderResponse, error) {
	return invoke[SubmitOrderResponse](ctx, c.cc, methodSubmitOrder, in, opts)
}
