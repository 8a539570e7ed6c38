package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "LoadCoach/internal/middleware"
	xhttp "LoadCoach/pkg/http"
	pkgkafka "LoadCoach/pkg/kafka"
	applogger "LoadCoach/pkg/logger"
	"LoadCoach/pkg/queue"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle: HTTP API, event
// consumer, job workers and the analytics pipeline.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	queue           queue.Queue
	jobs            []queue.Job
	pipeline        *mid.AnalyticsPipeline
	closers         []namedCloser
	shutdownTimeout time.Duration
	signals         []os.Signal
}

type Option func(*App)

// WithConsumer attaches a Kafka consumer and the handlers it dispatches to.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = append(a.handlers, handlers...)
	}
}

// WithQueue attaches a job queue and registers jobs on it at startup.
func WithQueue(q queue.Queue, jobs ...queue.Job) Option {
	return func(a *App) {
		a.queue = q
		a.jobs = append(a.jobs, jobs...)
	}
}

func WithPipeline(p *mid.AnalyticsPipeline) Option {
	return func(a *App) { a.pipeline = p }
}

// WithCloser registers a resource closed after every component has stopped.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates a new App instance with all dependencies.
func New(log *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = applogger.NewNop()
	}
	a := &App{
		log:             log,
		httpServer:      httpServer,
		shutdownTimeout: 15 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start brings components up in dependency order: pipeline, workers,
// consumer, HTTP.
func (a *App) Start(ctx context.Context) error {
	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.log.Info("analytics pipeline started")
	}
	if a.queue != nil {
		for _, j := range a.jobs {
			a.queue.RegisterJob(j)
		}
		if err := a.queue.Start(); err != nil {
			return err
		}
		a.log.Info("job queue started", applogger.Int("jobs", len(a.jobs)))
	}
	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.Strings("topics", topics))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}
	return nil
}

// Run starts the application and blocks until interrupted or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.signals...)
	defer signal.Stop(sigCh)
	select {
	case s := <-sigCh:
		a.log.Info("shutdown signal received", applogger.String("signal", s.String()))
	case <-ctx.Done():
		a.log.Info("context done, shutting down")
	}
	return a.Shutdown(context.Background())
}

// Shutdown stops components in reverse start order within the shutdown
// timeout, then closes the registered resources.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.shutdownTimeout)
	defer cancel()
	a.log.Info("shutting down...")

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}
	if a.pipeline != nil {
		if err := a.pipeline.Stop(ctx); err != nil {
			a.log.Warn("analytics pipeline stop error", applogger.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
