package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/milad/smartmeter/internal/domain"
)

// Client calls smartmeter.v1.Dashboard and decodes replies into domain types.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) PowerUsage(ctx context.Context, p domain.Period, opts ...grpc.CallOption) (domain.PowerUsage, error) {
	var out domain.PowerUsage
	err := c.call(ctx, "PowerUsage", map[string]any{"period": string(p)}, &out, opts...)
	return out, err
}

func (c *Client) Analytics(ctx context.Context, g domain.Granularity, opts ...grpc.CallOption) ([]domain.AnalyticsPoint, error) {
	var out analyticsResponse
	err := c.call(ctx, "Analytics", map[string]any{"granularity": string(g)}, &out, opts...)
	return out.Points, err
}

func (c *Client) LiveUsage(ctx context.Context, opts ...grpc.CallOption) (domain.LiveUsageReading, error) {
	var out domain.LiveUsageReading
	err := c.call(ctx, "LiveUsage", nil, &out, opts...)
	return out, err
}

func (c *Client) Billing(ctx context.Context, opts ...grpc.CallOption) (domain.BillingRecord, error) {
	var out domain.BillingRecord
	err := c.call(ctx, "Billing", nil, &out, opts...)
	return out, err
}

// call sends fields as a Struct, or Empty when fields is nil.
func (c *Client) call(ctx context.Context, method string, fields map[string]any, out any, opts ...grpc.CallOption) error {
	var in any = new(emptypb.Empty)
	if fields != nil {
		s, err := structpb.NewStruct(fields)
		if err != nil {
			return err
		}
		in = s
	}
	reply := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, reply, opts...); err != nil {
		return err
	}
	return fromStruct(reply, out)
}

// WaitForReady polls the health service until it answers or maxWait passes.
// It never fails: a server that is still down surfaces on the first call.
func WaitForReady(ctx context.Context, cc grpc.ClientConnInterface, maxWait time.Duration, log *zap.Logger) {
	if maxWait <= 0 {
		return
	}

	hc := healthpb.NewHealthClient(cc)
	deadline := time.Now().Add(maxWait)

	backoff := 100 * time.Millisecond
	for {
		if ctx.Err() != nil {
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		_, err := hc.Check(reqCtx, &healthpb.HealthCheckRequest{})
		cancel()
		if err == nil {
			log.Debug("gRPC is ready")
			return
		}

		if time.Now().After(deadline) {
			log.Warn("gRPC not ready; continuing anyway", zap.Duration("waited", maxWait), zap.Error(err))
			return
		}

		time.Sleep(backoff)
		backoff = min(backoff*2, 1*time.Second)
	}
}
