// Command canary watches a host's disk activity and power-cycles it through
// a relay when the host stops showing signs of life.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/canary/internal/config"
	"github.com/sweeney/canary/internal/hal"
	"github.com/sweeney/canary/internal/logic"
	"github.com/sweeney/canary/internal/monitor"
	"github.com/sweeney/canary/internal/mqtt"
	"github.com/sweeney/canary/internal/status"
	"github.com/sweeney/canary/internal/web"
)

func main() {
	cfgPath := flag.String("config", "", "Config file (.yaml, .yml or .toml); defaults apply when empty")
	broker := flag.String("broker", "", "MQTT broker address, overrides the config file")
	httpAddr := flag.String("http", "", "HTTP status address, overrides the config file")
	printState := flag.Bool("print-state", false, "Print switches and activity input, then exit")

	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	// Explicitly passed flags win, including empty values that disable a surface.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		}
	})

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg config.Config, printState bool) error {
	opts := cfg.BoardOptions()
	if printState {
		// Opening the hardware watchdog would start its countdown.
		opts.WatchdogDevice = ""
	}
	board, err := hal.NewRealBoard(opts)
	if err != nil {
		return fmt.Errorf("init board: %w", err)
	}
	defer board.Close()

	if printState {
		return printBoardState(board, cfg)
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		publisher = mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.BufferSize,
		})
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), trackerConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event (session %s)", snap.SessionID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			// The watchdog keeps running without its status page.
			if err := srv.Run(ctx); err != nil {
				log.Printf("http status server: %v", err)
			}
		}()
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	var leds monitor.LEDs
	if opts.Pins.HasLEDs() {
		leds = board
	}
	indicator := monitor.NewIndicator(leds, nil)
	ctrl := monitor.New(board, indicator, monitor.Config{
		Timing:   cfg.Timing(),
		Table:    cfg.Table(),
		SelfTest: cfg.SelfTest,
	})

	d := newDaemon(ctrl, publisher, publisher, tracker, cfg.MQTT.Heartbeat, time.Now)

	log.Printf("started: tick=%v idle_unit=%v grace=%v table=%v watchdog=%q broker=%q heartbeat=%v",
		cfg.TickPeriod, cfg.IdleUnit, cfg.Grace, cfg.TimeoutTable, cfg.Watchdog.Device, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cfg.TickPeriod)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctx, board, indicator, d, ticker.C, sigCh)
}

// runLoop runs the tick source, the activity watcher, the indicator and the
// decision loop until a signal arrives or one of them fails.
func runLoop(ctx context.Context, board hal.Board, indicator *monitor.Indicator, d *daemon, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return monitor.RunTimebase(ctx, tick, board.ArmTimer, d.ctrl.Tick)
	})
	g.Go(func() error {
		return monitor.RunActivityWatcher(ctx, board.Edges(), d.ctrl.Activity)
	})
	g.Go(func() error {
		return indicator.Run(ctx)
	})
	g.Go(func() error {
		return d.ctrl.Run(ctx, d.handle)
	})
	g.Go(func() error {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.shutdown(signalName(s))
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	return g.Wait()
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func printBoardState(board hal.Board, cfg config.Config) error {
	sw, err := board.ReadSwitches()
	if err != nil {
		return fmt.Errorf("read switches: %w", err)
	}
	active, err := board.ReadActivity()
	if err != nil {
		return fmt.Errorf("read activity: %w", err)
	}
	fmt.Println(formatBoardState(sw, active, cfg))
	return nil
}

func formatBoardState(sw hal.Switches, active bool, cfg config.Config) string {
	timing := cfg.Timing()
	ticks := cfg.Table().Ticks(sw.Selection, timing)
	mode := logic.ModePower
	if sw.ResetMode {
		mode = logic.ModeReset
	}
	activity := "idle"
	if active {
		activity = "active"
	}
	return fmt.Sprintf("switches: %d, mode: %s, timeout: %d ticks (%v), activity: %s",
		sw.Selection, mode, ticks, time.Duration(ticks)*timing.TickPeriod, activity)
}

func trackerConfig(cfg config.Config) status.Config {
	return status.Config{
		TickPeriodMs: cfg.TickPeriod.Milliseconds(),
		IdleUnitMs:   cfg.IdleUnit.Milliseconds(),
		GraceMs:      cfg.Grace.Milliseconds(),
		HeartbeatMs:  cfg.MQTT.Heartbeat.Milliseconds(),
		Table:        cfg.TimeoutTable,
		SelfTest:     cfg.SelfTest,
		Watchdog:     cfg.Watchdog.Device,
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
