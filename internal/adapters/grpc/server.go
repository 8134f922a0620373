package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/barazo-forum/barazo-trust/internal/application"
)

// TrustQueryService is the internal API other forum services call on the
// request path: score reads and the synchronous write-budget check.
type TrustQueryService interface {
	GetTrustScore(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckWriteAllowed(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type TrustQueryServer struct {
	service *application.Service
}

func NewTrustQueryServer(service *application.Service) *TrustQueryServer {
	return &TrustQueryServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc TrustQueryService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "barazo.trust.v1.TrustQueryService",
		HandlerType: (*TrustQueryService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetTrustScore",
				Handler:    getTrustScoreHandler(svc),
			},
			{
				MethodName: "CheckWriteAllowed",
				Handler:    checkWriteAllowedHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "barazo/contracts/proto/trust/v1/trust_query.proto",
	}, svc)
}

func (s *TrustQueryServer) GetTrustScore(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	did := req.GetFields()["did"].GetStringValue()
	if did == "" {
		return nil, status.Error(codes.InvalidArgument, "missing did")
	}

	score, err := s.service.GetTrustScore(ctx, did)
	if err != nil {
		return nil, mapStatus(err)
	}

	fields := map[string]any{
		"did":   score.Did,
		"score": score.Score,
	}
	if !score.ComputedAt.IsZero() {
		fields["computed_at"] = score.ComputedAt.Unix()
	}
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *TrustQueryServer) CheckWriteAllowed(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	did := req.GetFields()["did"].GetStringValue()
	if did == "" {
		return nil, status.Error(codes.InvalidArgument, "missing did")
	}
	communityDid := req.GetFields()["community_did"].GetStringValue()

	res, err := s.service.CheckWriteRateLimit(ctx, did, communityDid)
	if err != nil {
		return nil, mapStatus(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"allowed": !res.RateLimited,
		"class":   res.Class,
		"budget":  res.Budget,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func mapStatus(err error) error {
	s, _, msg := mapCode(err)
	return status.Error(s, msg)
}

func getTrustScoreHandler(svc TrustQueryService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetTrustScore(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/barazo.trust.v1.TrustQueryService/GetTrustScore",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetTrustScore(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func checkWriteAllowedHandler(svc TrustQueryService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.CheckWriteAllowed(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/barazo.trust.v1.TrustQueryService/CheckWriteAllowed",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.CheckWriteAllowed(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
