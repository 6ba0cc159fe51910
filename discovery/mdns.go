// Package discovery resolves multiCam devices on the local network via
// mDNS/Bonjour and folds the results into the device registry. The rest
// of the core never touches mDNS; it only reads registry snapshots.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/Gusemmett/multiCamController/log"
	"github.com/Gusemmett/multiCamController/registry"
	"github.com/Gusemmett/multiCamController/types"
)

// mDNS service identity for multiCam camera apps.
const (
	ServiceType = "_multicam._tcp"
	Domain      = "local."
)

// DefaultWindow is how long one browse collects announcements.
const DefaultWindow = 5 * time.Second

// sourceKey marks registry entries owned by discovery, so pruning never
// touches manually registered devices.
const (
	sourceKey  = "source"
	sourceMDNS = "mdns"
)

// Browser discovers devices and maintains the registry.
type Browser struct {
	logger *log.Logger
}

// NewBrowser creates a discovery browser.
func NewBrowser(logger *log.Logger) *Browser {
	if logger == nil {
		logger = log.Nop()
	}
	return &Browser{logger: logger}
}

// Discover browses for the service for one window, upserts every device
// seen, and removes previously discovered devices that no longer
// announce. Absence across a full browse window is the removal signal.
// Manually registered devices are never pruned.
//
// Returns the devices seen this window. Calling twice against an
// unchanged network yields identical registry snapshots.
func (b *Browser) Discover(ctx context.Context, reg *registry.Registry, window time.Duration) ([]types.Device, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create mDNS resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	seen := make(map[string]types.Device)

	go func() {
		defer close(done)
		for entry := range entries {
			device, ok := entryToDevice(entry)
			if !ok {
				continue
			}
			seen[device.Name] = device
			reg.Upsert(device.Name, device.Addr, device.Port, device.Meta)
			b.logger.Info("device discovered", map[string]any{
				"device":   device.Name,
				"endpoint": device.HostPort(),
			})
		}
	}()

	if err := resolver.Browse(browseCtx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", ServiceType, err)
	}

	<-browseCtx.Done()
	<-done

	pruneUnseen(reg, seen, b.logger)

	devices := make([]types.Device, 0, len(seen))
	for _, d := range seen {
		devices = append(devices, d)
	}
	return devices, nil
}

// entryToDevice converts an mDNS entry into a registry device.
// Entries with no usable address are dropped.
func entryToDevice(entry *zeroconf.ServiceEntry) (types.Device, bool) {
	var addr string
	switch {
	case len(entry.AddrIPv4) > 0:
		addr = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		addr = entry.AddrIPv6[0].String()
	default:
		return types.Device{}, false
	}

	meta := map[string]string{sourceKey: sourceMDNS}
	for _, txt := range entry.Text {
		if k, v, ok := strings.Cut(txt, "="); ok {
			meta[k] = v
		}
	}

	return types.Device{
		Name: entry.Instance,
		Addr: addr,
		Port: entry.Port,
		Meta: meta,
	}, true
}

// pruneUnseen removes discovery-owned registry entries that did not
// announce during the window.
func pruneUnseen(reg *registry.Registry, seen map[string]types.Device, logger *log.Logger) {
	for _, existing := range reg.Snapshot() {
		if existing.Meta[sourceKey] != sourceMDNS {
			continue
		}
		if _, ok := seen[existing.Name]; ok {
			continue
		}
		reg.Remove(existing.Name)
		logger.Info("device disappeared", map[string]any{"device": existing.Name})
	}
}
