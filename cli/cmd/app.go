package cmd

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/Gusemmett/multiCamController/broadcast"
	"github.com/Gusemmett/multiCamController/channel"
	"github.com/Gusemmett/multiCamController/cli/config"
	"github.com/Gusemmett/multiCamController/companion"
	"github.com/Gusemmett/multiCamController/discovery"
	"github.com/Gusemmett/multiCamController/log"
	"github.com/Gusemmett/multiCamController/metrics"
	"github.com/Gusemmett/multiCamController/registry"
	"github.com/Gusemmett/multiCamController/session"
	"github.com/Gusemmett/multiCamController/storage"
)

// defaultConfigFile is picked up from the working directory when --config
// is not given.
const defaultConfigFile = "multicam.yaml"

// controller bundles the assembled core for one CLI invocation.
type controller struct {
	cfg       *config.Config
	logger    *log.Logger
	registry  *registry.Registry
	browser   *discovery.Browser
	coord     *broadcast.Coordinator
	orch      *session.Orchestrator
	stats     *metrics.Collector
	companion *companion.Server
	window    time.Duration
}

// buildController assembles the core from config file and flags.
// Flags override file values.
func buildController(c *cli.Context) (*controller, error) {
	cfgPath := c.String("config")
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			cfgPath = defaultConfigFile
		}
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	logger := log.Nop()
	if c.Bool("verbose") {
		logger = log.NewLogger(sessionID)
	}

	reg := registry.New()
	for _, spec := range c.StringSlice("device") {
		name, host, port, err := parseDeviceSpec(spec)
		if err != nil {
			return nil, err
		}
		reg.Upsert(name, host, port, nil)
	}

	client := channel.New(channel.Config{
		DialTimeout:  cfg.Timeouts.Dial.Duration,
		ReplyTimeout: cfg.Timeouts.Reply.Duration,
		ListTimeout:  cfg.Timeouts.List.Duration,
		DownloadDir:  cfg.ResolveDownloadDir(),
	}, logger)

	coord := broadcast.New(client, broadcast.Config{
		SyncDelay:  cfg.SyncDelay.Duration,
		Originator: cfg.Originator,
	}, logger)

	var uploader session.Uploader
	if cfg.Storage.Bucket != "" {
		store, err := storage.NewS3Store(c.Context, storage.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Prefix:       cfg.Storage.Prefix,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.PathStyle,
			Anonymous:    cfg.Storage.Anonymous,
		}, logger)
		if err != nil {
			return nil, err
		}
		uploader = store
	}

	stats := metrics.NewCollector(sessionID)
	orch := session.New(reg, coord, uploader, logger).WithMetrics(stats)

	var comp *companion.Server
	if cfg.Companion.Command != "" {
		comp = companion.New(companion.Config{
			Command: cfg.Companion.Command,
			Args:    cfg.Companion.Args,
			Port:    cfg.Companion.Port,
		}, logger)
	}

	window := cfg.Discovery.Window.Duration
	if c.Duration("window") != 0 {
		window = c.Duration("window")
	}

	return &controller{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		browser:   discovery.NewBrowser(logger),
		coord:     coord,
		orch:      orch,
		stats:     stats,
		companion: comp,
		window:    window,
	}, nil
}

// populate runs discovery (unless suppressed) and registers the
// companion server. Returns an error when no device at all is known.
func (ctl *controller) populate(c *cli.Context) error {
	if ctl.companion != nil {
		if err := ctl.companion.Start(c.Context); err != nil {
			fmt.Fprintf(os.Stderr, "companion server unavailable: %v\n", err)
		} else {
			ctl.companion.Register(ctl.registry)
		}
	}

	if !c.Bool("no-discover") {
		devices, err := ctl.browser.Discover(c.Context, ctl.registry, ctl.window)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		ctl.stats.SetDevicesDiscovered(int64(len(devices)))
	}

	if ctl.registry.Len() == 0 {
		return fmt.Errorf("no devices found; check that camera apps are running on this network")
	}
	return nil
}

// shutdown stops the companion server if one was started.
func (ctl *controller) shutdown() {
	if ctl.companion != nil {
		ctl.companion.Stop()
	}
}

// parseDeviceSpec parses "name@host:port" or "host:port".
func parseDeviceSpec(spec string) (name, host string, port int, err error) {
	hostport := spec
	if at := strings.Index(spec, "@"); at >= 0 {
		name = spec[:at]
		hostport = spec[at+1:]
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid device %q: want name@host:port", spec)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", "", 0, fmt.Errorf("invalid device port in %q", spec)
	}

	if name == "" {
		name = "manual-" + host
	}
	return name, host, port, nil
}
