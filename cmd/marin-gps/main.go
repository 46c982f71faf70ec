package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"github.com/oklog/run"

	"marin-gps/internal/config"
	"marin-gps/internal/logship"
	"marin-gps/internal/web"
)

func main() {
	var configPath string
	var summarizePath string
	flag.StringVar(&configPath, "config", "./marin-gps.yaml", "Path to YAML config")
	flag.StringVar(&summarizePath, "summarize", "", "Print a summary of an NMEA capture log and exit")
	flag.Parse()

	if summarizePath != "" {
		if err := printLogSummary(os.Stdout, summarizePath); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	rt, err := newLiveRuntime(cfg, logs)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	if rt.shipper != nil {
		log.SetOutput(io.MultiWriter(os.Stderr, logs, rt.shipper.Writer(logship.LevelInfo)))
	}

	log.Printf("marin-gps starting config=%s", configPath)
	err = rt.run(context.Background())
	var sig run.SignalError
	if err != nil && !errors.As(err, &sig) && !errors.Is(err, context.Canceled) {
		log.Fatalf("marin-gps stopped: %v", err)
	}
	log.Printf("marin-gps stopping")
}
