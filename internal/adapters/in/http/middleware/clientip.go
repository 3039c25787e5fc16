package middleware

import (
	"net"

	"github.com/labstack/echo/v4"
)

// ParseTrustedProxies converts IPs and CIDR ranges to networks. Single IPs
// become /32 or /128 blocks; unparsable entries are skipped.
func ParseTrustedProxies(proxies []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, proxy := range proxies {
		if _, ipNet, err := net.ParseCIDR(proxy); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		ip := net.ParseIP(proxy)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// IPExtractor returns the echo IP extractor for the given trusted proxies.
// X-Forwarded-For is only honored when the request comes through one of them;
// with no proxies configured the peer address is always used.
func IPExtractor(proxies []string) echo.IPExtractor {
	nets := ParseTrustedProxies(proxies)
	if len(nets) == 0 {
		return echo.ExtractIPDirect()
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range nets {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
