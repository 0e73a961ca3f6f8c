package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName — полное имя gRPC-сервиса.
const ServiceName = "foodorder.v1.CartService"

const (
	methodGetCart        = "GetCart"
	methodAddItem        = "AddItem"
	methodUpdateQuantity = "UpdateQuantity"
	methodRemoveItem     = "RemoveItem"
	methodClearCart      = "ClearCart"
	methodQuoteDelivery  = "QuoteDelivery"
	methodAllocateBonus  = "AllocateBonus"
	methodPreviewOrder   = "PreviewOrder"
	methodSubmitOrder    = "SubmitOrder"
)

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// unaryHandler строит grpc.MethodHandler для метода call с учётом interceptor'ов сервера.
func unaryHandler[Req any, Resp any](name string, call func(CartServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CartServiceDesc — описание сервиса для grpc.Server.
var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(methodGetCart, CartServiceServer.GetCart),
		unaryHandler(methodAddItem, CartServiceServer.AddItem),
		unaryHandler(methodUpdateQuantity, CartServiceServer.UpdateQuantity),
		unaryHandler(methodRemoveItem, CartServiceServer.RemoveItem),
		unaryHandler(methodClearCart, CartServiceServer.ClearCart),
		unaryHandler(methodQuoteDelivery, CartServiceServer.QuoteDelivery),
		unaryHandler(methodAllocateBonus, CartServiceServer.AllocateBonus),
		unaryHandler(methodPreviewOrder, CartServiceServer.PreviewOrder),
		unaryHandler(methodSubmitOrder, CartServiceServer.SubmitOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "foodorder/v1/cart_service",
}

// RegisterCartServiceServer регистрирует реализацию на сервере.
func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}
