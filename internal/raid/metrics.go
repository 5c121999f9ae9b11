package raid

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/citadel-raid/raidnav/internal/raid"

type raidMetrics struct {
	pathsFound    metric.Int64Counter
	pathsFailed   metric.Int64Counter
	portsAssigned metric.Int64Counter
	portsReleased metric.Int64Counter
	portsWaiting  metric.Int64ObservableGauge
	vesselsActive metric.Int64ObservableGauge
}

// newRaidMetrics registers the raid instruments on the global meter. The
// gauges read the published Status, never the live raid.
func newRaidMetrics(r *Raid) (*raidMetrics, error) {
	m := otel.Meter(instrumentationName)
	rm := &raidMetrics{}

	var err error
	rm.pathsFound, err = m.Int64Counter("raid.paths.found",
		metric.WithDescription("Inbound paths planned for spawned vessels"))
	if err != nil {
		return nil, fmt.Errorf("creating paths found counter: %w", err)
	}
	rm.pathsFailed, err = m.Int64Counter("raid.paths.failed",
		metric.WithDescription("Spawns abandoned for lack of a path"))
	if err != nil {
		return nil, fmt.Errorf("creating paths failed counter: %w", err)
	}
	rm.portsAssigned, err = m.Int64Counter("raid.ports.assigned",
		metric.WithDescription("Ports bound to vessels"))
	if err != nil {
		return nil, fmt.Errorf("creating ports assigned counter: %w", err)
	}
	rm.portsReleased, err = m.Int64Counter("raid.ports.released",
		metric.WithDescription("Ports given back by vessels"))
	if err != nil {
		return nil, fmt.Errorf("creating ports released counter: %w", err)
	}
	rm.portsWaiting, err = m.Int64ObservableGauge("raid.ports.waiting",
		metric.WithDescription("Vessels waiting for a free port"))
	if err != nil {
		return nil, fmt.Errorf("creating ports waiting gauge: %w", err)
	}
	rm.vesselsActive, err = m.Int64ObservableGauge("raid.vessels.active",
		metric.WithDescription("Vessels between spawn and journey end"))
	if err != nil {
		return nil, fmt.Errorf("creating vessels active gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			s := r.Status()
			o.ObserveInt64(rm.portsWaiting, int64(s.Waiting))
			o.ObserveInt64(rm.vesselsActive, int64(s.Active))
			return nil
		},
		rm.portsWaiting, rm.vesselsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("registering raid gauges: %w", err)
	}
	return rm, nil
}

func (m *raidMetrics) pathFound() { m.pathsFound.Add(context.Background(), 1) }

func (m *raidMetrics) pathFailed() { m.pathsFailed.Add(context.Background(), 1) }

func (m *raidMetrics) portAssigned() { m.portsAssigned.Add(context.Background(), 1) }

func (m *raidMetrics) portReleased() { m.portsReleased.Add(context.Background(), 1) }
