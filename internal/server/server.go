// Package server contain implementation of go-gin-server and each route handlers
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/auth"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/config"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/metrics"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/realtime"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/storage"
)

// AuthLogPath is where auth attempts are written when LOGGING is enabled
const AuthLogPath = "log/auth.log"

// Server holds the database and every dependency the route handlers share
type Server struct {
	cfg *config.Config

	DB        *database.DBinstanceStruct
	Tokens    *auth.TokenIssuer
	Audit     *auth.AuditLog
	Blacklist auth.JwtBlacklistStore
	Broker    realtime.Broker
	Storage   storage.StorageClient
	Metrics   *metrics.Collector
	Location  *time.Location

	redis   *redis.Client
	closers []func() error

	streamsMu   sync.Mutex
	stopStreams []func()
}

// New builds the server dependencies described by cfg.
// With REDIS_URL set the change broker and the token blacklist are shared through Redis,
// otherwise both live in process memory.
func New(ctx context.Context, cfg *config.Config, db *database.DBinstanceStruct) (*Server, error) {
	if cfg.Auth.SecretKey == "" {
		return nil, errors.New("SECRET_KEY is required")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		DB:       db,
		Tokens:   auth.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.TokenTTL),
		Metrics:  metrics.NewCollector(),
		Location: loc,
	}

	audit, err := auth.NewAuditLog(cfg.Logging.AuthAudit, AuthLogPath)
	if err != nil {
		return nil, err
	}
	s.Audit = audit
	s.closers = append(s.closers, audit.Close)

	if cfg.Redis.URL != "" {
		if err := s.connectRedis(ctx, cfg.Redis.URL); err != nil {
			_ = s.Close()
			return nil, err
		}
	} else {
		broker := realtime.NewMemoryBroker()
		blacklist := auth.NewInMemoryBlacklistStore()
		s.Broker = broker
		s.Blacklist = blacklist
		s.closers = append(s.closers, broker.Close, func() error {
			blacklist.Close()
			return nil
		})
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s.Storage = store

	return s, nil
}

func (s *Server) connectRedis(ctx context.Context, url string) error {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("REDIS_URL is invalid: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	broker := realtime.NewRedisBroker(client, realtime.DefaultChannel)
	s.redis = client
	s.Broker = broker
	s.Blacklist = auth.NewRedisBlacklistStore(client)
	s.closers = append(s.closers, client.Close, broker.Close)
	log.Info().Str("addr", opt.Addr).Msg("using redis for live updates and token blacklist")
	return nil
}

// HTTPServer returns the http.Server for the configured port.
// Shutdown on it ends open live feeds so they don't hold the drain until its deadline.
func (s *Server) HTTPServer() *http.Server {
	hs := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	hs.RegisterOnShutdown(s.StopStreams)
	return hs
}

func (s *Server) onStopStreams(stop func()) {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()
	s.stopStreams = append(s.stopStreams, stop)
}

// StopStreams ends the live feeds of every handler built by RegisterRoutes.
func (s *Server) StopStreams() {
	s.streamsMu.Lock()
	stops := s.stopStreams
	s.streamsMu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

// Close releases the dependencies in reverse order of creation.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
