package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/run"

	"marin-gps/internal/config"
	"marin-gps/internal/gps"
	"marin-gps/internal/logship"
	"marin-gps/internal/metrics"
	"marin-gps/internal/replay"
	"marin-gps/internal/sim"
	"marin-gps/internal/telemetry"
	"marin-gps/internal/udp"
	"marin-gps/internal/web"
)

// fixPublisher is the MQTT side as seen by the refresh loop.
type fixPublisher interface {
	Publish(gps.Snapshot) error
}

type liveRuntime struct {
	cfg config.Config

	svc     *gps.Service
	status  *web.Status
	stream  *web.FixBroadcaster
	metrics *metrics.Metrics
	logs    *web.LogBuffer

	shipper *logship.Shipper
	mqtt    *telemetry.Publisher
	pub     fixPublisher
	fwd     *udp.Forwarder
	rec     *replay.Writer

	recFailed atomic.Bool
	hadFix    bool
}

func newLiveRuntime(cfg config.Config, logs *web.LogBuffer) (*liveRuntime, error) {
	rt := &liveRuntime{
		cfg:     cfg,
		status:  web.NewStatus(),
		stream:  web.NewFixBroadcaster(),
		metrics: metrics.New(),
		logs:    logs,
	}

	if cfg.Logger.Enable {
		s, err := logship.New(logship.Config{
			Server:  cfg.Logger.Server,
			Port:    cfg.Logger.Port,
			Device:  cfg.Logger.Device,
			Queue:   cfg.Logger.Queue,
			Timeout: cfg.Logger.Timeout,
		})
		if err != nil {
			return nil, err
		}
		rt.shipper = s
	}

	if cfg.MQTT.Enable {
		rt.mqtt = telemetry.New(telemetry.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		})
		rt.pub = rt.mqtt
	}

	if cfg.UDP.Enable {
		f, err := udp.NewForwarder(cfg.UDP.Dest)
		if err != nil {
			return nil, fmt.Errorf("udp forwarder init failed: %w", err)
		}
		rt.fwd = f
	}

	if cfg.Record.Enable {
		w, err := replay.CreateWriter(cfg.Record.Path)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("record open failed path=%s: %w", cfg.Record.Path, err)
		}
		rt.rec = w
	}

	rt.svc = gps.New(gps.Config{
		Enable:           cfg.GPS.Enable,
		Source:           cfg.GPS.Source,
		Device:           cfg.GPS.Device,
		Baud:             cfg.GPS.Baud,
		GPSDAddr:         cfg.GPS.GPSDAddr,
		ReplayPath:       cfg.GPS.Replay.Path,
		ReplaySpeed:      cfg.GPS.Replay.Speed,
		ReplayLoop:       cfg.GPS.Replay.Loop,
		Sim: sim.Receiver{
			Track: sim.Track{
				CenterLatDeg: cfg.GPS.Sim.CenterLat,
				CenterLonDeg: cfg.GPS.Sim.CenterLon,
				RadiusNm:     cfg.GPS.Sim.RadiusNm,
				Period:       cfg.GPS.Sim.Period,
			},
			AltM:       cfg.GPS.Sim.AltM,
			Satellites: cfg.GPS.Sim.Satellites,
		},
		SimInterval:      cfg.GPS.Sim.Interval,
		VerifyChecksum:   cfg.GPS.VerifyChecksum,
		MaxSentenceBytes: cfg.GPS.MaxSentenceBytes,
	}, gps.Options{
		Observer:   rt.metrics,
		OnSentence: rt.onSentence,
	})
	return rt, nil
}

// onSentence runs on the GPS goroutine for every '$' line.
func (rt *liveRuntime) onSentence(sentence string, kind gps.Kind, out gps.Outcome) {
	if rt.rec != nil {
		if err := rt.rec.WriteSentence(time.Now(), sentence); err != nil && !rt.recFailed.Swap(true) {
			log.Printf("record write failed: %v", err)
		}
	}
	// Lines that failed verification are not passed on.
	if out == gps.OutcomeChecksum {
		return
	}
	if rt.fwd != nil {
		_ = rt.fwd.SendSentence(sentence)
	}
	if rt.shipper != nil && rt.cfg.Logger.ShipNMEA {
		rt.shipper.SendRawNMEA(sentence)
	}
}

// refresh is one tick of the consumer loop: it publishes a snapshot on each
// new-data edge and acknowledges it. It reports whether it published.
func (rt *liveRuntime) refresh(now time.Time) bool {
	rt.status.SetGPS(rt.svc.Snapshot())
	rt.status.SetSinks(rt.sinkStats())

	snap, ok := rt.svc.State().TakeNewData()
	if !ok {
		return false
	}

	rt.metrics.ObserveFix(snap)
	if rt.stream.Publish(snap) > 0 {
		rt.status.MarkPublish(now, "ws")
		rt.metrics.ObservePublish("ws")
	}
	if rt.pub != nil {
		if err := rt.pub.Publish(snap); err == nil {
			rt.status.MarkPublish(now, "mqtt")
			rt.metrics.ObservePublish("mqtt")
		}
	}

	if snap.HasFix != rt.hadFix {
		if snap.HasFix {
			log.Printf("gps fix acquired pos=%s sats=%s type=%s", snap.Position, intOrDash(snap.Satellites), snap.FixType)
		} else {
			log.Printf("gps fix lost last_time=%s", snap.Time)
		}
		rt.hadFix = snap.HasFix
	}
	return true
}

func (rt *liveRuntime) sinkStats() web.SinkStats {
	var out web.SinkStats
	if rt.shipper != nil {
		s := rt.shipper.Stats()
		out.Logger = &s
	}
	if rt.mqtt != nil {
		s := rt.mqtt.Stats()
		out.MQTT = &s
	}
	if rt.fwd != nil {
		sent, failed := rt.fwd.Counts()
		out.UDP = &web.UDPStats{Dest: rt.fwd.Dest(), Sent: sent, Failed: failed}
	}
	return out
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func (rt *liveRuntime) runRefresh(ctx context.Context) {
	t := time.NewTicker(rt.cfg.Refresh.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			rt.refresh(now.UTC())
		}
	}
}

func (rt *liveRuntime) handler() web.Deps {
	return web.Deps{
		Status:  rt.status,
		Fix:     rt.svc.State(),
		Logs:    rt.logs,
		Stream:  rt.stream,
		Metrics: rt.metrics.Handler(),
	}
}

// run blocks until a signal arrives or a component fails.
func (rt *liveRuntime) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer rt.close()

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	g.Add(func() error {
		// Keep serving status even if the receiver is missing; the service
		// records the error for /api/status.
		if err := rt.svc.Start(ctx); err != nil {
			log.Printf("gps start failed: %v", err)
		}
		<-ctx.Done()
		rt.svc.Close()
		return nil
	}, func(error) { cancel() })

	g.Add(func() error {
		log.Printf("web listening addr=%s", rt.cfg.Web.Listen)
		return web.Serve(ctx, rt.cfg.Web.Listen, web.Handler(rt.handler()))
	}, func(error) { cancel() })

	g.Add(func() error {
		rt.runRefresh(ctx)
		return nil
	}, func(error) { cancel() })

	if rt.shipper != nil {
		g.Add(func() error {
			log.Printf("log shipping enabled server=%s port=%d nmea=%t", rt.cfg.Logger.Server, rt.cfg.Logger.Port, rt.cfg.Logger.ShipNMEA)
			return rt.shipper.Run(ctx)
		}, func(error) { cancel() })
	}

	if rt.mqtt != nil {
		g.Add(func() error {
			if err := rt.mqtt.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("mqtt stopped: %v", err)
			}
			<-ctx.Done()
			return nil
		}, func(error) { cancel() })
	}

	return g.Run()
}

func (rt *liveRuntime) close() {
	if rt.rec != nil {
		if err := rt.rec.Close(); err != nil {
			log.Printf("record close failed: %v", err)
		}
	}
	if rt.fwd != nil {
		_ = rt.fwd.Close()
	}
}
