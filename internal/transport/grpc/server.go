package grpcserver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/service"
)

// Dashboard is the subset of *service.DashboardService exposed over gRPC.
type Dashboard interface {
	PowerUsage(p domain.Period) domain.PowerUsage
	Analytics(ctx context.Context, g domain.Granularity) ([]domain.AnalyticsPoint, error)
	LiveUsage(ctx context.Context) (domain.LiveUsageReading, error)
	Billing(ctx context.Context) (domain.BillingRecord, error)
}

type Server struct {
	svc Dashboard
	log *zap.Logger
}

var _ DashboardServer = (*Server)(nil)

func New(svc Dashboard, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, log: log}
}

func (s *Server) PowerUsage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p := domain.ParsePeriod(stringField(in, "period"))
	return s.reply(s.svc.PowerUsage(p), nil)
}

func (s *Server) Analytics(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	g, err := domain.ParseGranularity(stringField(in, "granularity"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pts, err := s.svc.Analytics(ctx, g)
	if pts == nil {
		pts = []domain.AnalyticsPoint{}
	}
	return s.reply(analyticsResponse{Points: pts}, err)
}

func (s *Server) LiveUsage(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	r, err := s.svc.LiveUsage(ctx)
	return s.reply(r, err)
}

func (s *Server) Billing(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	b, err := s.svc.Billing(ctx)
	return s.reply(b, err)
}

type analyticsResponse struct {
	Points []domain.AnalyticsPoint `json:"points"`
}

func (s *Server) reply(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.toStatus(err)
	}
	out, err := toStruct(v)
	if err != nil {
		s.log.Error("encode response", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrUpstream):
		s.log.Warn("upstream failure", zap.Error(err))
		return status.Error(codes.Unavailable, "upstream unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		s.log.Error("internal failure", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// UnaryLogger logs each call with its status code and duration.
func UnaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start).Truncate(time.Millisecond)),
		)
		return resp, err
	}
}
