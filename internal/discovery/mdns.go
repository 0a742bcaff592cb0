// ABOUTME: mDNS service discovery for reference nodes
// ABOUTME: Handles both advertisement (reference-side) and browsing (sync-node side)
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/hashicorp/mdns"
)

const serviceType = "_driftbeacon._udp"

// Config holds discovery configuration.
type Config struct {
	ServiceName string
	Port        int
}

// Manager handles mDNS advertise/browse operations for reference nodes.
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ReferenceInfo
}

// ReferenceInfo describes a discovered reference node.
type ReferenceInfo struct {
	Name string
	Host string
	Port int
}

// NewManager creates a discovery manager.
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ReferenceInfo, 10),
	}
}

// Advertise advertises this reference node via mDNS.
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		serviceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=/driftbeacon"},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, serviceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for reference nodes on the local network.
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				ref := &ReferenceInfo{
					Name: entry.Name,
					Host: entry.AddrV4.String(),
					Port: entry.Port,
				}

				log.Printf("Discovered reference node: %s at %s:%d", ref.Name, ref.Host, ref.Port)

				select {
				case m.servers <- ref:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: serviceType,
			Domain:  "local",
			Timeout: 3,
			Entries: entries,
		}

		mdns.Query(params)
		close(entries)
	}
}

// References returns the channel of discovered reference nodes.
func (m *Manager) References() <-chan *ReferenceInfo {
	return m.servers
}

// Stop stops the discovery manager.
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local, non-loopback IPv4 addresses.
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
