// Package grpcapi exposes the gRPC health service and the bearer-token
// interceptors shared by every gRPC service registered on the server.
package grpcapi

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"orgadmin.io/internal/auth"
)

const (
	serviceName  = "orgadmin"
	healthPrefix = "/grpc.health.v1.Health/"
)

// Resolver turns a bearer access token into a principal.
type Resolver interface {
	ResolveIdentity(ctx context.Context, bearer string) (auth.Principal, error)
}

// Server wraps a grpc.Server with health reporting and authentication.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	auth   Resolver
	logger *zap.Logger
}

// NewServer builds a server whose non-health methods require a valid bearer
// token. Health reports NOT_SERVING until SetServing(true).
func NewServer(resolver Resolver, logger *zap.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		health: health.NewServer(),
		auth:   resolver,
		logger: logger.Named("grpc"),
	}
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.unaryAuth),
		grpc.ChainStreamInterceptor(s.streamAuth),
	)
	s.grpc = grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)
	return s
}

// GRPC exposes the underlying server for service registration.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// SetServing flips the overall and per-service health status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(serviceName, st)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// GracefulStop marks the server unhealthy and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) unaryAuth(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if strings.HasPrefix(info.FullMethod, healthPrefix) {
		return handler(ctx, req)
	}
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *Server) streamAuth(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if strings.HasPrefix(info.FullMethod, healthPrefix) {
		return handler(srv, ss)
	}
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
}

func (s *Server) authenticate(ctx context.Context, method string) (context.Context, error) {
	token, err := bearerFromMetadata(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	principal, err := s.auth.ResolveIdentity(ctx, token)
	switch {
	case errors.Is(err, auth.ErrAuthentication):
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	case err != nil:
		s.logger.Error("resolve identity", zap.String("method", method), zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	ctx = auth.ContextWithPrincipal(ctx, principal)
	return auth.ContextWithToken(ctx, token), nil
}

func bearerFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", errors.New("missing bearer token")
	}
	header := strings.TrimSpace(values[0])
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }
