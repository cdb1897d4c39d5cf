// Package grpchealth - gRPC сервер со стандартным grpc.health.v1 для воркера,
// чтобы оркестратор мог проверять его без HTTP.
package grpchealth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"courier-dispatch/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

const (
	KeepaliveTime    = 5 * time.Minute
	KeepaliveTimeout = 3 * time.Second
	MinPingInterval  = 30 * time.Second
)

type Server struct {
	log    logger.Logger
	server *grpc.Server
	health *health.Server
}

// New регистрирует health сервис для каждого имени из services, пустое имя - статус всего процесса.
// Все сервисы стартуют в NOT_SERVING.
func New(log logger.Logger, services ...string) *Server {
	server := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    KeepaliveTime,
			Timeout: KeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             MinPingInterval,
			PermitWithoutStream: false,
		}),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	s := &Server{
		log:    log.With(logger.NewField("component", "grpc-health")),
		server: server,
		health: healthServer,
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING, append(services, "")...)
	return s
}

// Listen открывает tcp порт и обслуживает его до Stop.
func (s *Server) Listen(port string) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return fmt.Errorf("listen grpc health port %s: %w", port, err)
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc health server starting", logger.NewField("addr", lis.Addr().String()))

	err := s.server.Serve(lis)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

func (s *Server) SetServing(services ...string) {
	s.set(healthpb.HealthCheckResponse_SERVING, append(services, "")...)
}

func (s *Server) SetNotServing(services ...string) {
	s.set(healthpb.HealthCheckResponse_NOT_SERVING, append(services, "")...)
}

// Stop переводит все сервисы в NOT_SERVING и ждет завершения активных вызовов,
// пока не отменится ctx.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("grpc health graceful stop timed out, forcing")
		s.server.Stop()
	}
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus, services ...string) {
	for _, service := range services {
		s.health.SetServingStatus(service, status)
	}
}
