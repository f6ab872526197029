package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gr-satt/bordem/config"
	"github.com/gr-satt/bordem/internal/domain"
	"github.com/gr-satt/bordem/internal/ports"
	"github.com/gr-satt/bordem/internal/risk"
	"github.com/gr-satt/bordem/internal/schedule"
)

const indicatorInstances = 3

// MonitorService orchestrates the monitoring loop: failsafe check, indicator
// snapshot and mail alert, once per scheduled cycle.
type MonitorService struct {
	cfg        *config.Config
	logger     ports.Logger
	trader     ports.Trader
	marketData ports.MarketData
	riskMgr    *risk.Manager
	events     ports.EventRepository
	mailer     ports.Mailer
}

// NewMonitorService creates a new application service instance.
func NewMonitorService(
	cfg *config.Config,
	logger ports.Logger,
	trader ports.Trader,
	marketData ports.MarketData,
	riskMgr *risk.Manager,
	events ports.EventRepository,
	mailer ports.Mailer,
) (*MonitorService, error) {
	// The mailer is optional; everything else is required.
	if cfg == nil || logger == nil || trader == nil || marketData == nil || riskMgr == nil || events == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for MonitorService", ports.ErrConfiguration)
	}
	return &MonitorService{
		cfg:        cfg,
		logger:     logger,
		trader:     trader,
		marketData: marketData,
		riskMgr:    riskMgr,
		events:     events,
		mailer:     mailer,
	}, nil
}

// Start runs monitoring cycles until the context is cancelled, a shutdown
// signal arrives or the balance failsafe trips.
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting monitor service", map[string]interface{}{
		"symbol": s.cfg.Symbol, "timeframe": s.cfg.Timeframe, "scheduled": s.cfg.ScheduleEnabled,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if s.cfg.ScheduleEnabled {
			s.logger.Info(ctx, "Waiting for next scheduled cycle", map[string]interface{}{
				"hour": s.cfg.ScheduleHour, "minute": s.cfg.ScheduleMinute,
			})
			if err := schedule.At(ctx, s.cfg.ScheduleHour, s.cfg.ScheduleMinute); err != nil {
				s.logger.Info(ctx, "Monitor service stopped while waiting for schedule")
				return nil
			}
		}

		err := s.RunCycle(ctx)
		if err != nil {
			if errors.Is(err, ports.ErrBalanceFailsafe) {
				s.logger.Error(ctx, err, "Failsafe tripped, halting monitor service")
				return err
			}
			if ctx.Err() != nil {
				s.logger.Info(ctx, "Monitor service stopped")
				return nil
			}
		}

		if !s.cfg.ScheduleEnabled {
			// Without a schedule a single cycle is performed.
			return err
		}
		if err != nil {
			s.logger.Error(ctx, err, "Monitoring cycle failed, continuing")
		}
	}
}

// RunCycle performs one monitoring pass: balance failsafe check, indicator
// snapshot, event log entry and alert mail.
func (s *MonitorService) RunCycle(ctx context.Context) error {
	balance, err := s.riskMgr.CheckBalance(ctx, s.cfg.Symbol)
	if err != nil {
		if errors.Is(err, ports.ErrBalanceFailsafe) {
			s.alert(ctx, "Balance failsafe tripped",
				fmt.Sprintf("Balance %.8f fell below the configured floor %.8f.\nOpen exposure was flattened and trading halted.", balance, s.cfg.FailsafeFloor))
		}
		return err
	}

	result, err := s.marketData.Indicator(ctx, ports.IndicatorRequest{
		Symbol:    s.cfg.Symbol,
		Timeframe: s.cfg.Timeframe,
		Name:      s.cfg.IndicatorName,
		Period:    s.cfg.IndicatorPeriod,
		Source:    s.cfg.IndicatorSource,
		Instances: indicatorInstances,
	})
	if err != nil {
		return fmt.Errorf("computing indicator snapshot: %w", err)
	}

	price, err := s.trader.LastPrice(ctx, s.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("retrieving last price: %w", err)
	}

	summary := summarize(result)
	s.logger.Info(ctx, "Monitoring cycle completed", map[string]interface{}{
		"balance": balance, "price": price, "indicator": result.Name, "values": summary,
	})

	event := &domain.Event{
		OccurredAt: time.Now(),
		Operation:  "cycle",
		Message:    "monitoring cycle completed",
		Details:    fmt.Sprintf("balance=%.8f price=%.2f %s=%s", balance, price, result.Name, summary),
	}
	if _, err := s.events.Append(ctx, event); err != nil {
		s.logger.Error(ctx, err, "Failed to record monitoring cycle")
	}

	s.alert(ctx, fmt.Sprintf("%s %s snapshot", s.cfg.Symbol, result.Name),
		fmt.Sprintf("Balance: %.8f BTC\nLast price: %.2f\n%s (period %d): %s",
			balance, price, result.Name, s.cfg.IndicatorPeriod, summary))
	return nil
}

// alert sends a mail when a mailer is configured. Delivery failures are
// logged but never fail the cycle.
func (s *MonitorService) alert(ctx context.Context, subject, body string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, subject, body); err != nil {
		s.logger.Error(ctx, err, "Failed to deliver alert", map[string]interface{}{"subject": subject})
	}
}

// summarize renders the indicator outputs as "name: v1 v2 ..." pairs in
// stable key order.
func summarize(result *ports.IndicatorResult) string {
	keys := make([]string, 0, len(result.Outputs))
	for k := range result.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := make([]string, 0, len(result.Outputs[k]))
		for _, v := range result.Outputs[k] {
			vals = append(vals, fmt.Sprintf("%.4f", v))
		}
		parts = append(parts, k+": "+strings.Join(vals, " "))
	}
	return strings.Join(parts, ", ")
}
