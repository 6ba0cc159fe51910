package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"

	"github.com/Gusemmett/multiCamController/log"
	"github.com/Gusemmett/multiCamController/registry"
	"github.com/Gusemmett/multiCamController/types"
)

func TestEntryToDevice(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.23")},
		Port:     8080,
		Text:     []string{"model=iPhone15", "app=2.1"},
	}
	entry.Instance = "angus-iphone"

	device, ok := entryToDevice(entry)
	if !ok {
		t.Fatal("entry with IPv4 address rejected")
	}
	if device.Name != "angus-iphone" || device.Addr != "192.168.1.23" || device.Port != 8080 {
		t.Errorf("device = %+v", device)
	}
	if device.Meta["model"] != "iPhone15" || device.Meta["app"] != "2.1" {
		t.Errorf("meta = %v", device.Meta)
	}
	if device.Meta[sourceKey] != sourceMDNS {
		t.Error("discovered device not marked as mDNS-owned")
	}
}

func TestEntryToDevice_NoAddress(t *testing.T) {
	entry := &zeroconf.ServiceEntry{Port: 8080}
	entry.Instance = "ghost"

	if _, ok := entryToDevice(entry); ok {
		t.Error("entry without address accepted")
	}
}

func TestEntryToDevice_IPv6Fallback(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
		Port:     9000,
	}
	entry.Instance = "cam6"

	device, ok := entryToDevice(entry)
	if !ok || device.Addr != "fe80::1" {
		t.Errorf("device = %+v, ok = %v", device, ok)
	}
}

func TestPruneUnseen(t *testing.T) {
	reg := registry.New()
	reg.Upsert("stale-cam", "10.0.0.9", 8080, map[string]string{sourceKey: sourceMDNS})
	reg.Upsert("live-cam", "10.0.0.10", 8080, map[string]string{sourceKey: sourceMDNS})
	reg.Upsert("manual-cam", "127.0.0.1", 8081, nil)

	seen := map[string]types.Device{
		"live-cam": {Name: "live-cam"},
	}
	pruneUnseen(reg, seen, log.Nop())

	if _, ok := reg.Get("stale-cam"); ok {
		t.Error("stale discovered device not pruned")
	}
	if _, ok := reg.Get("live-cam"); !ok {
		t.Error("still-announcing device pruned")
	}
	if _, ok := reg.Get("manual-cam"); !ok {
		t.Error("manually registered device pruned")
	}
}
