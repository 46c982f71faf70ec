package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GPS     GPSConfig     `yaml:"gps"`
	Record  RecordConfig  `yaml:"record"`
	Web     WebConfig     `yaml:"web"`
	Logger  LoggerConfig  `yaml:"logger"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	UDP     UDPConfig     `yaml:"udp"`
	Refresh RefreshConfig `yaml:"refresh"`
}

type GPSConfig struct {
	Enable bool `yaml:"enable"`

	// Source is serial (default), gpsd, replay or sim.
	Source   string       `yaml:"source"`
	Device   string       `yaml:"device"`
	Baud     int          `yaml:"baud"`
	GPSDAddr string       `yaml:"gpsd_addr"`
	Replay   ReplayConfig `yaml:"replay"`
	Sim      SimConfig    `yaml:"sim"`

	VerifyChecksum   bool `yaml:"verify_checksum"`
	MaxSentenceBytes int  `yaml:"max_sentence_bytes"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

// SimConfig drives the synthetic receiver used without hardware.
type SimConfig struct {
	CenterLat  float64       `yaml:"center_lat"`
	CenterLon  float64       `yaml:"center_lon"`
	RadiusNm   float64       `yaml:"radius_nm"`
	Period     time.Duration `yaml:"period"`
	AltM       float64       `yaml:"alt_m"`
	Satellites int           `yaml:"satellites"`
	Interval   time.Duration `yaml:"interval"`
}

// RecordConfig captures every dispatched sentence to a replay log.
type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

// LoggerConfig points at an HTTP log collector.
type LoggerConfig struct {
	Enable   bool          `yaml:"enable"`
	Server   string        `yaml:"server"`
	Port     int           `yaml:"port"`
	Device   string        `yaml:"device"`
	ShipNMEA bool          `yaml:"ship_nmea"`
	Queue    int           `yaml:"queue"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

// RefreshConfig paces the loop that consumes the fix's new-data flag.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
}

const (
	minSentenceBytes = 16
	maxSentenceBytes = 4096
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			return Config{}, typeError(te)
		}
		return Config{}, err
	}

	if err := cfg.applyGPS(); err != nil {
		return Config{}, err
	}

	if cfg.Record.Enable {
		if strings.TrimSpace(cfg.Record.Path) == "" {
			return Config{}, fmt.Errorf("record.path is required when record.enable is true")
		}
		if cfg.GPS.Source == "replay" {
			return Config{}, fmt.Errorf("record cannot be used with gps.source=replay")
		}
	}

	if strings.TrimSpace(cfg.Web.Listen) == "" {
		cfg.Web.Listen = ":8080"
	}

	if err := cfg.applyLogger(); err != nil {
		return Config{}, err
	}

	if cfg.MQTT.Enable {
		if strings.TrimSpace(cfg.MQTT.Broker) == "" {
			return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.QoS > 2 {
			return Config{}, fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "marin-gps"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "marin-gps/fix"
	}

	if cfg.UDP.Enable && strings.TrimSpace(cfg.UDP.Dest) == "" {
		return Config{}, fmt.Errorf("udp.dest is required when udp.enable is true")
	}

	if cfg.Refresh.Interval <= 0 {
		cfg.Refresh.Interval = 100 * time.Millisecond
	}

	return cfg, nil
}

func (cfg *Config) applyGPS() error {
	g := &cfg.GPS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	switch g.Source {
	case "":
		g.Source = "serial"
	case "serial", "gpsd", "replay", "sim":
	default:
		return fmt.Errorf("gps.source must be one of serial, gpsd, replay, sim")
	}

	if g.Baud == 0 {
		g.Baud = 9600
	}
	if g.Baud < 0 {
		return fmt.Errorf("gps.baud must be > 0")
	}
	if g.GPSDAddr == "" {
		g.GPSDAddr = "127.0.0.1:2947"
	}

	if g.MaxSentenceBytes == 0 {
		g.MaxSentenceBytes = 256
	}
	if g.MaxSentenceBytes < minSentenceBytes || g.MaxSentenceBytes > maxSentenceBytes {
		return fmt.Errorf("gps.max_sentence_bytes must be between %d and %d", minSentenceBytes, maxSentenceBytes)
	}

	if g.Source == "replay" {
		if strings.TrimSpace(g.Replay.Path) == "" {
			return fmt.Errorf("gps.replay.path is required when gps.source is 'replay'")
		}
		if g.Replay.Speed == 0 {
			g.Replay.Speed = 1
		}
		if g.Replay.Speed < 0 {
			return fmt.Errorf("gps.replay.speed must be > 0")
		}
	}
	if g.Source == "sim" {
		return g.Sim.apply()
	}
	return nil
}

func (s *SimConfig) apply() error {
	if s.CenterLat < -90 || s.CenterLat > 90 {
		return fmt.Errorf("gps.sim.center_lat must be between -90 and 90")
	}
	if s.CenterLon < -180 || s.CenterLon > 180 {
		return fmt.Errorf("gps.sim.center_lon must be between -180 and 180")
	}
	if s.RadiusNm == 0 {
		s.RadiusNm = 0.5
	}
	if s.RadiusNm < 0 {
		return fmt.Errorf("gps.sim.radius_nm must be > 0")
	}
	if s.Period <= 0 {
		s.Period = 10 * time.Minute
	}
	if s.AltM == 0 {
		s.AltM = 30
	}
	if s.Satellites == 0 {
		s.Satellites = 8
	}
	if s.Satellites < 0 || s.Satellites > 12 {
		return fmt.Errorf("gps.sim.satellites must be between 1 and 12")
	}
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	return nil
}

func (cfg *Config) applyLogger() error {
	l := &cfg.Logger
	if l.Port == 0 {
		l.Port = 8080
	}
	if l.Port < 0 || l.Port > 65535 {
		return fmt.Errorf("logger.port must be between 1 and 65535")
	}
	if l.Device == "" {
		l.Device = "marin-gps"
	}
	if l.Queue <= 0 {
		l.Queue = 256
	}
	if l.Timeout <= 0 {
		l.Timeout = 2 * time.Second
	}
	if l.Enable && strings.TrimSpace(l.Server) == "" {
		return fmt.Errorf("logger.server is required when logger.enable is true")
	}
	return nil
}

// typeError keeps the "unknown fields" wording for misspelled keys only;
// wrongly typed values are reported as invalid.
func typeError(te *yaml.TypeError) error {
	var unknown, invalid []string
	for _, e := range stripLinePrefixes(te.Errors) {
		if strings.HasPrefix(e, "field ") && strings.Contains(e, " not found in type ") {
			unknown = append(unknown, e)
		} else {
			invalid = append(invalid, e)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("config contains unknown fields: %s", strings.Join(unknown, "; "))
	}
	return fmt.Errorf("config contains invalid values: %s", strings.Join(invalid, "; "))
}

// stripLinePrefixes drops yaml's "line N: " prefixes so messages stay stable
// when a file is reformatted.
func stripLinePrefixes(errs []string) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if strings.HasPrefix(e, "line ") {
			if i := strings.Index(e, ": "); i >= 0 {
				e = e[i+2:]
			}
		}
		out = append(out, e)
	}
	return out
}
