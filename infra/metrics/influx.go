package metrics

import (
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/kitty3000/core/events"
	coremetrics "github.com/kilianp07/kitty3000/core/metrics"
	"github.com/kilianp07/kitty3000/infra/logger"
)

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Device tags every point, useful when several dispensers share a bucket.
	Device string `json:"device"`
}

// InfluxSink writes dispenser events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	device   string
	log      logger.Logger
}

var _ io.Closer = (*InfluxSink)(nil)

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		device:   cfg.Device,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func (s *InfluxSink) point(measurement string, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement(measurement)
	if s.device != "" {
		p = p.AddTag("device", s.device)
	}
	return p.SetTime(ts)
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCommand writes a handled command with its outcome.
func (s *InfluxSink) RecordCommand(ev events.CommandEvent) error {
	errStr := ""
	if ev.Err != nil {
		errStr = ev.Err.Error()
	}
	p := s.point("command_handled", ev.Time).
		AddTag("command", ev.Command.String()).
		AddField("success", ev.Err == nil).
		AddField("error", errStr)
	return s.write(p)
}

// RecordDispense writes one dispense cycle.
func (s *InfluxSink) RecordDispense(ev events.DispenseEvent) error {
	p := s.point("dispense", ev.Time).
		AddField("treats_remaining", ev.TreatsRemaining).
		AddField("counter", ev.Counter)
	return s.write(p)
}

// RecordRecalibration writes a corrective rotation.
func (s *InfluxSink) RecordRecalibration(ev events.RecalibrationEvent) error {
	p := s.point("recalibration", ev.Time).
		AddTag("reason", ev.Reason).
		AddField("angle_deg", round3(ev.AngleDegrees))
	return s.write(p)
}

// RecordTreats writes the inventory level.
func (s *InfluxSink) RecordTreats(ev events.TreatsEvent) error {
	p := s.point("treats", ev.Time).
		AddTag("source", ev.Source).
		AddField("remaining", ev.Remaining)
	return s.write(p)
}

// RecordConfig writes an accepted remote configuration.
func (s *InfluxSink) RecordConfig(ev events.ConfigEvent) error {
	p := s.point("remote_config", ev.Time).
		AddTag("name", ev.Config.Name).
		AddField("adjustment_freq", ev.Config.AdjustmentFreq).
		AddField("adjustment_angle", round3(ev.Config.AdjustmentAngle))
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
