package export

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/qw-group/srcdemo-go/pkg/config"
	"github.com/qw-group/srcdemo-go/pkg/demo"
)

//
// InfluxDB time series of player positions and game events.
//

const (
	measurementPosition = "player_position"
	measurementEvent    = "game_event"

	defaultTickInterval = time.Second / 64
)

type Influx struct {
	cfg    config.InfluxConfig
	client influxdb2.Client
	start  time.Time // Wall clock of tick 0.
}

func NewInflux(cfg config.InfluxConfig) *Influx {
	return &Influx{
		cfg:    cfg,
		client: influxdb2.NewClient(cfg.URL, cfg.Token),
		start:  time.Now(),
	}
}

// tickInterval is the server tick duration, derived from the header when the
// server info is missing.
func tickInterval(r *demo.Result) time.Duration {
	if r.ServerInfo.TickInterval > 0 {
		return time.Duration(float64(r.ServerInfo.TickInterval) * float64(time.Second))
	}
	if rate := r.Header.TickRate(); rate > 0 {
		return time.Duration(float64(time.Second) / rate)
	}
	return defaultTickInterval
}

// Points converts d into points, tick 0 being at start.
func Points(d *Demo, start time.Time) []*influxdb2_write.Point {
	r := d.Result
	interval := tickInterval(r)
	at := func(tick int32) time.Time {
		return start.Add(time.Duration(tick) * interval)
	}

	var points []*influxdb2_write.Point
	if r.Positions != nil {
		for _, tick := range r.Positions.Ticks() {
			for _, pt := range r.Positions.At(tick) {
				points = append(points, influxdb2.NewPoint(
					measurementPosition,
					map[string]string{
						"demo":   d.Name,
						"map":    r.Header.MapName,
						"player": pt.Name,
						"team":   pt.Team,
					},
					map[string]interface{}{
						"tick":  pt.Tick,
						"x":     pt.X,
						"y":     pt.Y,
						"z":     pt.Z,
						"pitch": pt.Pitch,
						"yaw":   pt.Yaw,
					},
					at(tick),
				))
			}
		}
	}

	for _, ev := range r.Events {
		p := influxdb2.NewPointWithMeasurement(measurementEvent).
			AddTag("demo", d.Name).
			AddTag("map", r.Header.MapName).
			AddTag("name", ev.Name).
			AddField("tick", ev.Tick).
			SetTime(at(ev.Tick))
		for k, v := range ev.Fields {
			switch v.(type) {
			case string, bool, float32, int32, int16, uint8, uint64:
				p.AddField(k, v)
			}
		}
		points = append(points, p)
	}
	return points
}

func (i *Influx) Export(ctx context.Context, d *Demo) (err error) {
	defer func() { err = multierror.Prefix(err, "Influx.Export:") }()

	points := Points(d, i.start)
	if len(points) == 0 {
		return nil
	}
	writeAPI := i.client.WriteAPIBlocking(i.cfg.Org, i.cfg.Bucket)
	if err = writeAPI.WritePoint(ctx, points...); err != nil {
		return err
	}
	log.Debug().Str("ctx", "export").Str("event", "influx").Str("demo", d.Name).Int("points", len(points)).Msg("written")
	return nil
}

func (i *Influx) Close() error {
	i.client.Close()
	return nil
}
