package net

import (
	"fmt"
	"log"
	"net"
	"strings"
)

// LinkScheme prefixes share links handed to other participants.
const LinkScheme = "localboard://"

// ShareLink returns the link other participants open to join a relay
// listening on port of this machine.
func ShareLink(port int) string {
	ip, err := OutgoingIP()
	if err != nil {
		log.Printf("[NET] No shareable address: %v", err)
		ip = "127.0.0.1"
	}
	return fmt.Sprintf("%s%s", LinkScheme, net.JoinHostPort(ip, fmt.Sprint(port)))
}

// ParseLink extracts host:port from a share link. ok is false when link is
// not a share link; an empty address asks for discovery.
func ParseLink(link string) (addr string, ok bool) {
	if !strings.HasPrefix(link, LinkScheme) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(link, LinkScheme), "/"), true
}

// OutgoingIP finds the address other machines on the LAN can reach. The UDP
// dial sends nothing; it only asks the kernel for the preferred route.
func OutgoingIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return interfaceIP()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// interfaceIP is used on networks without a default route.
func interfaceIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
	}
	return "", fmt.Errorf("no non-loopback IPv4 interface")
}
