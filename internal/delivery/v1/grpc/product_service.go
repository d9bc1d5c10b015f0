package grpc

import (
	"context"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const catalogServiceName = "catalog.v1.CatalogService"

// CatalogServiceServer — внутренний API каталога для соседних сервисов.
// Сообщения — well-known типы protobuf, поэтому сгенерированный код не нужен.
type CatalogServiceServer interface {
	GetProduct(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ComputeStats(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SweepOrphans(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	BackfillNormalization(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

type ProductService struct {
	catalogUC     usecase.CatalogUC
	maintenanceUC usecase.MaintenanceUC
	logger        logger.Logger
}

func NewProductService(catalogUC usecase.CatalogUC, maintenanceUC usecase.MaintenanceUC, logger logger.Logger) *ProductService {
	return &ProductService{catalogUC: catalogUC, maintenanceUC: maintenanceUC, logger: logger}
}

func (g *ProductService) GetProduct(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	const op = "grpc.GetProduct"

	product, err := g.catalogUC.GetByArticleNumber(ctx, req.GetValue())
	if err != nil {
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return toStruct(op, productFields(product))
}

func (g *ProductService) ComputeStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	const op = "grpc.ComputeStats"

	stats, err := g.maintenanceUC.ComputeStats(ctx)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return toStruct(op, map[string]any{
		"valid":            stats.Valid,
		"with_barcode":     stats.WithBarcode,
		"created_last_24h": stats.CreatedLast24h,
		"orphans":          stats.Orphans,
		"total":            stats.Total,
		"computed_at":      stats.ComputedAt.UTC().Format(time.RFC3339),
	})
}

func (g *ProductService) SweepOrphans(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	const op = "grpc.SweepOrphans"

	res, err := g.maintenanceUC.SweepOrphans(ctx)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return toStruct(op, map[string]any{
		"removed": res.Removed,
		"failed":  res.Failed,
	})
}

func (g *ProductService) BackfillNormalization(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	const op = "grpc.BackfillNormalization"

	res, err := g.maintenanceUC.BackfillNormalization(ctx)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	degenerate := make([]any, len(res.Degenerate))
	for i, a := range res.Degenerate {
		degenerate[i] = a
	}

	return toStruct(op, map[string]any{
		"scanned":    res.Scanned,
		"updated":    res.Updated,
		"degenerate": degenerate,
	})
}

func productFields(p *domain.Product) map[string]any {
	fields := map[string]any{
		"id":             p.ID,
		"article_number": p.ArticleNumber,
		"product_name":   p.Name,
		"image_path":     p.ImagePath,
		"created_at":     p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.Barcode != nil {
		fields["barcode"] = *p.Barcode
	}

	return fields
}

func toStruct(op string, fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return s, nil
}

func registerCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetProduct",
			Handler: unaryHandler("GetProduct", func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} },
				func(srv CatalogServiceServer, ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
					return srv.GetProduct(ctx, req)
				}),
		},
		{
			MethodName: "ComputeStats",
			Handler:    emptyHandler("ComputeStats", CatalogServiceServer.ComputeStats),
		},
		{
			MethodName: "SweepOrphans",
			Handler:    emptyHandler("SweepOrphans", CatalogServiceServer.SweepOrphans),
		},
		{
			MethodName: "BackfillNormalization",
			Handler:    emptyHandler("BackfillNormalization", CatalogServiceServer.BackfillNormalization),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func emptyHandler(method string, call func(CatalogServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodHandler {
	return unaryHandler(method, func() *emptypb.Empty { return &emptypb.Empty{} }, call)
}

// unaryHandler повторяет то, что protoc-gen-go-grpc генерирует для каждого унарного метода.
func unaryHandler[Req any](
	method string,
	newReq func() Req,
	call func(CatalogServiceServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	fullMethod := "/" + catalogServiceName + "/" + method

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(CatalogServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServiceServer), ctx, req.(Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}
