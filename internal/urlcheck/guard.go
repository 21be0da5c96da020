package urlcheck

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

const maxRedirects = 5

// ErrBlockedAddress is returned when a check would connect to a non-public address
var ErrBlockedAddress = errors.New("address is not publicly routable")

// sharedAddressSpace is the carrier-grade NAT range, which IsPrivate does not cover
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// publicAddress reports whether ip may be dialed by the checker
func publicAddress(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(),
		ip.IsUnspecified(),
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast(),
		sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

// dialControl runs after name resolution, so it sees the address actually dialed
func dialControl(network, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !publicAddress(addrPort.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addrPort.Addr())
	}
	return nil
}

// NewTransport returns a transport for probing submitted URLs. It refuses to
// connect to loopback, private, link-local and other internal addresses, and
// ignores proxy settings so the check applies to the target itself.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return transport
}

// checkRedirect applies the submission host rules to every redirect hop
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return http.ErrUseLastResponse
	}
	if _, err := Parse(req.URL.String()); err != nil {
		return fmt.Errorf("redirect to %s refused: %w", req.URL.Host, err)
	}
	return nil
}

// guardClient copies client with the redirect rules installed. A nil client or
// transport gets the guarded transport.
func guardClient(client *http.Client) *http.Client {
	guarded := &http.Client{}
	if client != nil {
		*guarded = *client
	}
	if guarded.Transport == nil {
		guarded.Transport = NewTransport()
	}
	guarded.CheckRedirect = checkRedirect
	return guarded
}
