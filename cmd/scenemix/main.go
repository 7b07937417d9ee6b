// scenemix - OBS scene to XAir mixer bridge
//
// This is the main entry point for the scenemix service. It watches the
// program scene in OBS Studio over obs-websocket and drives the mute state
// of a Behringer XAir / Midas MR mixing console over OSC, so the channels
// that should be audible in each scene are open and everything else is
// muted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/graystream/scenemix/internal/bridge"
	"github.com/graystream/scenemix/internal/infrastructure/config"
	"github.com/graystream/scenemix/internal/infrastructure/logging"
	"github.com/graystream/scenemix/internal/infrastructure/mqtt"
	"github.com/graystream/scenemix/internal/mixer"
	"github.com/graystream/scenemix/internal/obs"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// options holds the parsed command line.
type options struct {
	configPath string
	debug      bool
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "c", "", "path to config file")
	flag.StringVar(&opts.configPath, "config", "", "path to config file")
	flag.BoolVar(&opts.debug, "d", false, "log at debug level")
	flag.BoolVar(&opts.debug, "debug", false, "log at debug level")
	flag.BoolVar(&opts.verbose, "v", false, "log at info level")
	flag.BoolVar(&opts.verbose, "verbose", false, "log at info level")
	flag.Parse()

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting scenemix",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyLogOverrides(cfg, opts)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"scenes", len(cfg.Scenes),
	)

	kind := mixer.Kind(strings.ToUpper(cfg.Mixer.Kind))
	channels, err := mixer.ChannelCount(kind)
	if err != nil {
		return fmt.Errorf("mixer config: %w", err)
	}

	scenes := buildSceneMap(cfg.Scenes)
	if err := scenes.Validate(channels); err != nil {
		return fmt.Errorf("scene config: %w", err)
	}

	// Connect to MQTT broker (optional status channel)
	var status *mqtt.Client
	if cfg.MQTT.Enabled {
		status, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		status.SetLogger(log.With("component", "mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := status.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	br := bridge.New(bridge.Options{
		Scenes:         scenes,
		ChannelCount:   channels,
		EagerResync:    cfg.Mixer.ResyncOnReconnect,
		CommandTimeout: cfg.GetCommandTimeout(),
		Status:         statusPublisher(status),
		Logger:         log.With("component", "bridge"),
	})

	mixerSup := newMixerSupervisor(cfg, kind, br, status, log)
	obsSup := newOBSSupervisor(cfg, br, status, log)

	log.Info("initialisation complete",
		"switcher", fmt.Sprintf("%s:%d", cfg.OBS.Host, cfg.OBS.Port),
		"mixer", fmt.Sprintf("%s (%s)", cfg.Mixer.Host, kind),
	)

	// The bridge loop decides when the show is over (switcher exit); its
	// return tears down both supervisors.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, runCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer stop()
		return br.Run(runCtx)
	})
	g.Go(func() error {
		obsSup.Run(runCtx)
		return nil
	})
	g.Go(func() error {
		mixerSup.Run(runCtx)
		return nil
	})

	err = g.Wait()
	log.Info("scenemix stopped")
	return err
}

// applyLogOverrides maps the CLI flags onto the config's log level.
// -d wins over -v; without either the file's level stands.
func applyLogOverrides(cfg *config.Config, opts options) {
	switch {
	case opts.debug:
		cfg.Logging.Level = "debug"
	case opts.verbose:
		cfg.Logging.Level = "info"
	}
}

// buildSceneMap converts the config's scene section into the bridge's types.
func buildSceneMap(scenes map[string][]int) bridge.SceneMap {
	out := make(bridge.SceneMap, len(scenes))
	for name, channels := range scenes {
		ids := make([]bridge.ChannelID, len(channels))
		for i, ch := range channels {
			ids[i] = bridge.ChannelID(ch)
		}
		out[bridge.SceneName(name)] = ids
	}
	return out
}

// statusPublisher avoids handing the bridge a non-nil interface wrapping a
// nil client.
func statusPublisher(status *mqtt.Client) bridge.StatusPublisher {
	if status == nil {
		return nil
	}
	return status
}

// newMixerSupervisor wires the console session into the bridge: the bridge
// learns about every connect and loss, and the supervisor owns redialling.
func newMixerSupervisor(cfg *config.Config, kind mixer.Kind, br *bridge.Bridge, status *mqtt.Client, log *logging.Logger) *bridge.Supervisor[*mixer.Client] {
	initial, max := cfg.Mixer.Reconnect.Delays()
	mixerLog := log.With("component", "mixer")

	return bridge.NewSupervisor(bridge.SupervisorConfig[*mixer.Client]{
		Name: "mixer",
		Dial: func(ctx context.Context) (*mixer.Client, error) {
			return mixer.Connect(ctx, mixer.Config{
				Kind:           kind,
				Host:           cfg.Mixer.Host,
				Port:           cfg.Mixer.Port,
				ConnectTimeout: cfg.GetMixerConnectTimeout(),
				ProbeInterval:  cfg.GetMixerProbeInterval(),
				Logger:         mixerLog,
			})
		},
		ConnectTimeout: cfg.GetMixerConnectTimeout(),
		Backoff:        bridge.BackoffConfig{Initial: initial, Max: max},
		OnUp: func(c *mixer.Client) {
			info := c.Info()
			mixerLog.Info("console connected",
				"name", info.Name,
				"model", info.Model,
				"firmware", info.Firmware,
			)
			br.MixerUp(c)
		},
		OnDown: func(err error) {
			mixerLog.Warn("console connection lost", "error", err)
			br.MixerDown()
		},
		OnState: func(s bridge.SessionState) {
			publishSession(status, "mixer", s)
		},
		Logger: mixerLog,
	})
}

// newOBSSupervisor wires the switcher session: scene changes and the exit
// announcement flow into the bridge, which serializes them with mixer
// events.
func newOBSSupervisor(cfg *config.Config, br *bridge.Bridge, status *mqtt.Client, log *logging.Logger) *bridge.Supervisor[*obs.Client] {
	initial, max := cfg.OBS.Reconnect.Delays()
	obsLog := log.With("component", "obs")

	return bridge.NewSupervisor(bridge.SupervisorConfig[*obs.Client]{
		Name: "obs",
		Dial: func(ctx context.Context) (*obs.Client, error) {
			return obs.Connect(ctx, obs.Config{
				Host:           cfg.OBS.Host,
				Port:           cfg.OBS.Port,
				Password:       cfg.OBS.Password,
				ConnectTimeout: cfg.GetOBSConnectTimeout(),
				OnSceneChanged: br.HandleSceneChanged,
				OnClosing:      br.HandleSwitcherClosing,
				Logger:         obsLog,
			})
		},
		ConnectTimeout: cfg.GetOBSConnectTimeout(),
		Backoff:        bridge.BackoffConfig{Initial: initial, Max: max},
		OnUp: func(c *obs.Client) {
			bannerCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if v, err := c.Version(bannerCtx); err == nil {
				obsLog.Info("switcher connected",
					"obs_version", v.OBSVersion,
					"websocket_version", v.WebSocketVersion,
				)
			} else {
				obsLog.Info("switcher connected")
				obsLog.Debug("version query failed", "error", err)
			}
		},
		OnDown: func(err error) {
			obsLog.Warn("switcher connection lost", "error", err)
		},
		OnState: func(s bridge.SessionState) {
			publishSession(status, "obs", s)
		},
		Logger: obsLog,
	})
}

// publishSession forwards a session transition to the status channel when
// one is configured. Delivery is best effort.
func publishSession(status *mqtt.Client, endpoint string, s bridge.SessionState) {
	if status == nil {
		return
	}
	_ = status.PublishSessionState(endpoint, s.String())
}
