// Package main implements the entry point for integrationd, the edge-event
// integration daemon: it bridges edge inference producers with downstream
// monitoring and action systems through a phase-aware workflow loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/allenshie/integration-core/config"
	"github.com/allenshie/integration-core/edgecomm"
	"github.com/allenshie/integration-core/edgeevent"
	"github.com/allenshie/integration-core/metric"
	"github.com/allenshie/integration-core/phase"
	"github.com/allenshie/integration-core/pipeline"
	"github.com/allenshie/integration-core/tasks"
	"github.com/allenshie/integration-core/workflow"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "integrationd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("integrationd exited with error", "error", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps startup configuration failures to 1 and anything else
// surfaced all the way up to run() to 2, per the CLI's documented exit codes.
func exitCodeFor(err error) int {
	if _, ok := err.(*startupError); ok {
		return 1
	}
	return 2
}

type startupError struct{ err error }

func (e *startupError) Error() string { return e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

func run() error {
	cliCfg := parseFlags()
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	}
	if cliCfg.ShowHelp {
		flag.Usage()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting integrationd", "version", Version)

	cfg, err := config.Load()
	if err != nil {
		return &startupError{err: fmt.Errorf("load config: %w", err)}
	}

	registerer := prometheus.NewRegistry()
	metrics := metric.New(registerer)
	startMetricsServer(cfg.MetricsAddr, registerer, logger)

	store := edgeevent.NewStore(cfg.MaxAge(), cfg.ClockSkew(), logger)

	ingestionAdapter, publishAdapter, err := buildAdapters(cfg, logger)
	if err != nil {
		return &startupError{err: fmt.Errorf("build edge-comm adapters: %w", err)}
	}

	engine, err := buildPhaseEngine(cfg, logger)
	if err != nil {
		return &startupError{err: fmt.Errorf("build phase engine: %w", err)}
	}

	selector, err := pipeline.BuildSelector(cfg.SelectorClass)
	if err != nil {
		return &startupError{err: fmt.Errorf("build pipeline selector: %w", err)}
	}

	natsConn, dispatchEngine, err := buildDispatchEngine(cfg, metrics, logger)
	if err != nil {
		return &startupError{err: fmt.Errorf("build dispatch engine: %w", err)}
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	ruleEngine, err := buildRuleEngine(cfg)
	if err != nil {
		return &startupError{err: fmt.Errorf("build rule engine: %w", err)}
	}

	sched, err := pipeline.LoadSchedule(cfg.PipelineSchedulePath, logger)
	if err != nil {
		return &startupError{err: fmt.Errorf("load pipeline schedule: %w", err)}
	}

	registry, err := pipeline.BuildRegistry(sched, pipeline.Dependencies{
		MCMOTEnabled:   cfg.MCMOTEnabled,
		FormatEnabled:  cfg.FormatEnabled,
		RuleEngine:     ruleEngine,
		DispatchEngine: dispatchEngine,
		Metrics:        metrics,
	})
	if err != nil {
		return &startupError{err: fmt.Errorf("build pipeline registry: %w", err)}
	}

	tctx := pipeline.NewContext(store, ingestionAdapter, nil, logger)

	if err := ingestionAdapter.StartEventIngestion(storeOnEvent(store, metrics)); err != nil {
		return &startupError{err: fmt.Errorf("start event ingestion: %w", err)}
	}
	if publishAdapter != ingestionAdapter {
		tctx.Adapter = pairedAdapter{ingestion: ingestionAdapter, publish: publishAdapter}
	}

	runner := workflow.NewRunner(
		tctx, engine, selector, registry, metrics,
		time.Duration(cfg.MQTTHeartbeatSeconds)*time.Second,
		cfg.LoopInterval(),
		cliCfg.ShutdownTimeout,
		cfg.PhasePublishBackend,
		logger,
	)

	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("integrationd ready", "edge_event_backend", cfg.EdgeEventBackend, "phase_publish_backend", cfg.PhasePublishBackend)

	return runner.Run(signalCtx)
}

func storeOnEvent(store *edgeevent.Store, metrics *metric.Metrics) edgecomm.OnEvent {
	return func(e edgeevent.Event) bool {
		accepted := store.AddEvent(e)
		if metrics != nil {
			if accepted {
				metrics.EventsReceived.WithLabelValues(e.CameraID).Inc()
			} else {
				metrics.EventsDropped.WithLabelValues("rejected").Inc()
			}
		}
		return accepted
	}
}

func buildAdapters(cfg *config.AppConfig, logger *slog.Logger) (edgecomm.Adapter, edgecomm.Adapter, error) {
	backendCfg := edgecomm.BackendConfig{
		Backend:       cfg.EdgeEventBackend,
		ServiceName:   cfg.ServiceName,
		HTTPAddr:      cfg.HTTPAddr,
		WebSocketAddr: cfg.WebSocketAddr,
		WebSocketPath: cfg.WebSocketEventsPath,
		MQTT: edgecomm.MQTTConfig{
			Host:             cfg.MQTTHost,
			Port:             cfg.MQTTPort,
			ClientID:         cfg.MQTTClientID,
			EventsTopic:      cfg.EdgeEventsMQTTTopic,
			PhaseTopic:       cfg.PhaseMQTTTopic,
			QoS:              cfg.MQTTQoS,
			Retain:           cfg.MQTTRetain,
			HeartbeatSeconds: cfg.MQTTHeartbeatSeconds,
			ServiceName:      cfg.ServiceName,
		},
	}
	return edgecomm.BuildPair(backendCfg, cfg.PhasePublishBackend, logger)
}

// pairedAdapter routes ingestion and publish calls to two distinct adapter
// instances, used only when EDGE_EVENT_BACKEND and PHASE_PUBLISH_BACKEND
// name different transports.
type pairedAdapter struct {
	ingestion edgecomm.Adapter
	publish   edgecomm.Adapter
}

func (p pairedAdapter) StartEventIngestion(onEvent edgecomm.OnEvent) error {
	return p.ingestion.StartEventIngestion(onEvent)
}
func (p pairedAdapter) PublishPhase(phaseName string, timestamp float64) bool {
	return p.publish.PublishPhase(phaseName, timestamp)
}
func (p pairedAdapter) Stop() error {
	if err := p.ingestion.Stop(); err != nil {
		return err
	}
	return p.publish.Stop()
}

func buildPhaseEngine(cfg *config.AppConfig, logger *slog.Logger) (phase.Engine, error) {
	schedulerName := cfg.SchedulerEngineClass
	if schedulerName == "" {
		schedulerName = "single"
	}
	scheduler, err := phase.BuildScheduler(schedulerName, time.Local, nil, nil)
	if err != nil {
		return nil, err
	}

	var mode phase.StaleMode
	switch cfg.EdgeEventStaleMode {
	case config.StaleModeFreeze:
		mode = phase.StaleModeFreeze
	case config.StaleModeUnknown:
		mode = phase.StaleModeUnknown
	default:
		mode = phase.StaleModeOff
	}

	return phase.BuildEngine(cfg.PhaseEngineClass, scheduler, cfg.PhaseStable(), cfg.StaleAfter(), mode, cfg.EdgeEventUnknownName, logger)
}

func buildDispatchEngine(cfg *config.AppConfig, metrics *metric.Metrics, logger *slog.Logger) (*nats.Conn, tasks.DispatchEngine, error) {
	if cfg.DispatchEngineClass != "" {
		return nil, nil, fmt.Errorf("unresolved event dispatch engine class %q", cfg.DispatchEngineClass)
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.MaxReconnects(-1), nats.ReconnectWait(cfg.RetryBackoff()))
	if err != nil {
		logger.Warn("nats connect failed, falling back to logging dispatch engine", "error", err)
		return nil, tasks.LoggingDispatchEngine{Logger: logger}, nil
	}

	return conn, tasks.NATSDispatchEngine{
		Conn:          conn,
		SubjectPrefix: cfg.NATSDispatchSubjectPrefix,
		Metrics:       metrics,
		Logger:        logger,
	}, nil
}

func buildRuleEngine(cfg *config.AppConfig) (tasks.RuleEngine, error) {
	if cfg.RuleEngineClass != "" {
		return nil, fmt.Errorf("unresolved rules engine class %q", cfg.RuleEngineClass)
	}
	return tasks.NoopRuleEngine{}, nil
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}
