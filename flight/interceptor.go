package flight

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"

	"github.com/hugr-lab/airport-predicate/internal/recovery"
)

// UnaryServerInterceptor creates a gRPC unary interceptor that stores
// request metadata in the context and turns handler panics into
// codes.Internal errors.
func UnaryServerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = EnrichContextMetadata(ctx)
		resp, err := recovery.Value(requestLogger(ctx, logger), info.FullMethod, func() (any, error) {
			return handler(ctx, req)
		})
		return resp, recovery.ToStatus(err)
	}
}

// StreamServerInterceptor creates a gRPC stream interceptor that stores
// request metadata in the stream context and turns handler panics into
// codes.Internal errors.
func StreamServerInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx := EnrichContextMetadata(ss.Context())
		wrappedStream := &wrappedServerStream{
			ServerStream: ss,
			ctx:          ctx,
		}
		err := recovery.Call(requestLogger(ctx, logger), info.FullMethod, func() error {
			return handler(srv, wrappedStream)
		})
		return recovery.ToStatus(err)
	}
}

// requestLogger returns logger annotated with the request's trace and
// session IDs, when present.
func requestLogger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return logger
	}
	if meta.TraceID != "" {
		logger = logger.With("trace_id", meta.TraceID)
	}
	if meta.SessionID != "" {
		logger = logger.With("session_id", meta.SessionID)
	}
	return logger
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapper's custom context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
