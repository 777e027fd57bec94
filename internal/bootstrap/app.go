// Package bootstrap wires the components together and owns the process
// lifecycle.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"quoter/internal/book"
	"quoter/internal/config"
	"quoter/internal/core"
	"quoter/internal/gateway"
	"quoter/internal/ledger"
	"quoter/internal/logging"
	"quoter/internal/metrics"
	"quoter/internal/orchestrator"
	"quoter/internal/quote"
	"quoter/internal/status"
	apperrors "quoter/pkg/errors"
)

// Exit codes, stable for operators and supervisors.
const (
	ExitOK                  = 0
	ExitAuthFailed          = 1
	ExitInstrumentNotTraded = 2
	ExitSocketError         = 3
	ExitSocketClosed        = 4
)

// App holds every component of the bot.
type App struct {
	cfg    *config.Config
	logger *logging.ZapLogger
	signer *gateway.Signer

	gw         *gateway.Gateway
	book       *book.Tracker
	ledger     *ledger.Ledger
	engine     *quote.Engine
	orch       *orchestrator.Orchestrator
	metrics    *metrics.Metrics
	metricsSrv *metrics.Server
	reporter   *status.Reporter

	instrumentKey string

	// one-shot guards for the startup subscription chain
	seedOnce       sync.Once
	instrumentOnce sync.Once
	ordersOnce     sync.Once

	fatal chan error
}

// NewApp loads the configuration and builds the full component graph.
// Nothing talks to the network until Run.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel, cfg.System.LogDir)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logger.Info("configuration loaded", "config", cfg.String())

	signer, err := gateway.NewSigner(string(cfg.Exchange.ClientKey), string(cfg.Exchange.ClientSecret))
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}

	a := &App{
		cfg:           cfg,
		logger:        logger,
		signer:        signer,
		metrics:       metrics.New(),
		instrumentKey: strconv.FormatInt(cfg.Trading.InstrumentID, 10),
		fatal:         make(chan error, 1),
	}

	a.gw = gateway.New(cfg.Exchange.Testnet, cfg.Exchange.URL, cfg.Exchange.Origin, logger)
	a.book = book.NewTracker(logger, a.onBestChange)
	a.ledger = ledger.New(cfg.Trading.InstrumentID, time.Now().Unix(), logger, a.onFill)
	a.engine = quote.NewEngine(
		cfg.Trading.InterestDec(),
		cfg.Trading.ShiftDec(),
		cfg.Trading.QuoteSizeDec(),
		cfg.Trading.MaxPositionDec(),
		logger,
	)
	a.orch = orchestrator.New(
		a.gw, a.book, a.ledger, a.engine, a.metrics,
		cfg.Trading.InstrumentID, core.Price{},
		cfg.Trading.OrderType, cfg.Trading.TimeInForce,
		logger,
	)
	a.metricsSrv = metrics.NewServer(cfg.System.MetricsPort, a.metrics, logger)
	a.reporter = status.NewReporter(
		time.Duration(cfg.System.StatusPrintIntervalMS)*time.Millisecond,
		a.book, a.ledger, logger,
	)
	return a, nil
}

// Run connects, authenticates and trades until a signal or a fatal condition
// ends the process. The returned error maps to an exit code via ExitCode.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.gw.SetDisconnectHandler(a.fail)
	if err := a.gw.Connect(); err != nil {
		return err
	}

	a.metricsSrv.Start()
	a.reporter.Start()

	if err := a.gw.Authenticate(a.signer, a.onAuth); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.fatal:
		a.logger.Error("fatal condition", "error", runErr)
	}

	a.shutdown(!socketDown(runErr))
	return runErr
}

// socketDown reports whether the fatal condition means the connection itself
// is gone. Auth or instrument failures leave the socket up, so the graceful
// shutdown path still applies to them.
func socketDown(err error) bool {
	return errors.Is(err, apperrors.ErrSocketError) || errors.Is(err, apperrors.ErrSocketClosed)
}

// shutdown stops the components in dependency order. The final cancel-all
// only makes sense while the socket is still up.
func (a *App) shutdown(socketUp bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if socketUp {
		a.orch.Shutdown(ctx)
	}
	a.reporter.Stop()
	if err := a.metricsSrv.Stop(ctx); err != nil {
		a.logger.Warn("metrics server stop failed", "error", err)
	}
	if socketUp {
		if err := a.gw.Close(); err != nil {
			a.logger.Debug("socket close", "error", err)
		}
	}
	a.logger.Sync()
}

// fail records the first fatal condition; later ones are dropped.
func (a *App) fail(err error) {
	select {
	case a.fatal <- err:
	default:
	}
}

// ExitCode maps the Run error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, apperrors.ErrAuthenticationFailed):
		return ExitAuthFailed
	case errors.Is(err, apperrors.ErrInstrumentNotTradable):
		return ExitInstrumentNotTraded
	case errors.Is(err, apperrors.ErrSocketClosed):
		return ExitSocketClosed
	default:
		return ExitSocketError
	}
}
