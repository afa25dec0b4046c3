package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rohmanhakim/fetchkit/internal/config"
	"github.com/rohmanhakim/fetchkit/internal/engine"
	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/metrics"
	"github.com/rohmanhakim/fetchkit/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session is everything one command invocation needs.
type session struct {
	cfg           config.Config
	logger        *zap.Logger
	recorder      *metadata.Recorder
	engine        *engine.Engine
	resultSink    storage.LocalSink
	metricsServer *http.Server
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := InitConfigWithError(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := metadata.NewLogger(cfg.LogLevel())
	if err != nil {
		return nil, err
	}
	recorder := metadata.NewRecorder(logger, "cli-"+uuid.NewString()[:8])

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	s := &session{
		cfg:        cfg,
		logger:     logger,
		recorder:   recorder,
		resultSink: storage.NewLocalSink(recorder, cfg.DryRun()),
	}

	if cfg.MetricsAddr() != "" {
		listener, err := net.Listen("tcp", cfg.MetricsAddr())
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		s.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := s.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", listener.Addr().String()))
	}

	s.engine, err = engine.New(cmd.Context(), cfg, engine.Param{
		MetadataSink: recorder,
		Metrics:      m,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// write persists one result and returns where it went.
func (s *session) write(result fetcher.FetchResult) (storage.WriteResult, error) {
	written, err := s.resultSink.Write(s.cfg.OutputDir(), result, s.cfg.HashAlgo())
	if err != nil {
		return storage.WriteResult{}, err
	}
	return written, nil
}

func (s *session) Close() {
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			s.logger.Warn("engine close", zap.Error(err))
		}
	}
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metricsServer.Shutdown(ctx)
	}
	_ = s.logger.Sync()
}
