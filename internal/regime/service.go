package regime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atlas-desktop/pulsecore/internal/datasource"
	"github.com/atlas-desktop/pulsecore/internal/engineerr"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/service"
	"github.com/atlas-desktop/pulsecore/pkg/types"
)

// ErrorThreshold is the consecutive-error streak at which this service
// reports unhealthy.
const ErrorThreshold = 10

// Service subscribes to NewCandle for its symbol, runs every candle
// through the Engine, and publishes IndicatorsCalculated plus, on a
// committed regime change, RegimeChanged.
type Service struct {
	*service.Base
	symbol string
	engine *Engine
}

// NewService wires a regime Engine into the event bus for one symbol.
func NewService(bus *events.Bus, logger *zap.Logger, symbol string, cfg Config) *Service {
	return &Service{
		Base:   service.NewBase("regime_engine_"+symbol, bus, logger),
		symbol: symbol,
		engine: New(cfg),
	}
}

// Seed replays historical bars through the engine so indicators and the
// regime classifier are warm before the first live candle. No events
// are published for seeded bars.
func (s *Service) Seed(ctx context.Context, source datasource.Source, timeframes []types.Timeframe) {
	for _, tf := range timeframes {
		bars, err := source.GetHistoricalData(ctx, s.symbol, tf)
		if err != nil {
			s.Logger().Warn("historical seed failed, starting cold",
				zap.String("timeframe", string(tf)), zap.Error(err))
			continue
		}
		if len(bars) == 0 {
			continue
		}
		for _, bar := range bars {
			s.engine.Process(s.symbol, tf, bar)
		}
		s.Logger().Info("seeded from historical data",
			zap.String("timeframe", string(tf)), zap.Int("bars", len(bars)))
	}
}

// Start subscribes to NewCandle and transitions to running.
func (s *Service) Start() {
	s.SubscribeTo(events.KindNewCandle, s.handleNewCandle)
	s.SetStatus(service.StatusRunning)
}

// Stop releases all subscriptions.
func (s *Service) Stop() {
	s.UnsubscribeAll()
	s.SetStatus(service.StatusStopped)
}

func (s *Service) handleNewCandle(ev events.Event) error {
	nc, ok := ev.(events.NewCandle)
	if !ok || nc.Symbol != s.symbol {
		return nil
	}

	// A failure processing one candle is counted and reported; later
	// candles keep flowing.
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("%v", r)
			s.HandleError("process candle", engineerr.New(engineerr.ErrIndicatorCalculation, nc.Symbol, reason, nil))
			s.PublishEvent(events.IndicatorCalculationError{
				BaseEvent: events.NewBaseEvent(nc.EventID()),
				Symbol:    nc.Symbol,
				Timeframe: nc.Timeframe,
				Reason:    reason,
			})
		}
	}()

	row, recent, transition := s.engine.Process(nc.Symbol, nc.Timeframe, nc.Candle)
	s.IncMetric("indicators_calculated")
	s.ClearErrorStreak()

	s.PublishEvent(events.IndicatorsCalculated{
		BaseEvent:          events.NewBaseEvent(nc.EventID()),
		Symbol:             nc.Symbol,
		Timeframe:          nc.Timeframe,
		EnrichedData:       row,
		RecentRowsSnapshot: recent,
	})

	if transition != nil && transition.IsTransition {
		s.IncMetric("regime_changes_detected")
		s.PublishEvent(events.RegimeChanged{
			BaseEvent:    events.NewBaseEvent(nc.EventID()),
			Symbol:       nc.Symbol,
			Timeframe:    nc.Timeframe,
			Old:          transition.Old,
			New:          transition.New,
			Confidence:   row.RegimeConfidence,
			IsTransition: row.IsTransition,
		})
	}

	return nil
}

// Health reports this service's health using the shared threshold.
func (s *Service) Health() service.Health {
	return s.HealthFromThreshold(ErrorThreshold)
}
