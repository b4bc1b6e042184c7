package net

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_localboard._tcp"

// ErrNoRelay is returned by Browse when no relay answered in time.
var ErrNoRelay = errors.New("no relay found on the local network")

// Advertise announces a relay listening on port. Shut the server down to
// stop announcing.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(
		host,        // instance name
		serviceType, // _localboard._tcp
		"",          // domain, defaults to .local
		"",          // hostname, defaults to the OS hostname
		port,
		nil, // IPs, auto-detected
		[]string{"LocalBoard"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for a relay for up to timeout and returns the first
// host:port that answered.
func Browse(timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			select {
			case found <- fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port):
			default:
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-drained
	if err != nil {
		return "", fmt.Errorf("mdns query: %w", err)
	}
	select {
	case addr := <-found:
		return addr, nil
	default:
		return "", ErrNoRelay
	}
}
