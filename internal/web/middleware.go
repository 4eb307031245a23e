package web

import (
	"fmt"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// defaultAdminCIDRs covers loopback and the private ranges. Used when no
// explicit allowlist is configured.
var defaultAdminCIDRs = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// adminIPAllow builds a middleware rejecting requests whose peer address is
// outside the given CIDRs with 403. The peer address is taken from the socket,
// not from forwarding headers, so the guard holds even behind a confused proxy.
func adminIPAllow(cidrs []string) (echo.MiddlewareFunc, error) {
	if len(cidrs) == 0 {
		cidrs = defaultAdminCIDRs
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("admin allowlist: %w", err)
		}
		nets = append(nets, n)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
			if err != nil {
				host = c.Request().RemoteAddr
			}
			ip := net.ParseIP(host)
			if ip == nil || !allowed(nets, ip) {
				return c.NoContent(http.StatusForbidden)
			}
			return next(c)
		}
	}, nil
}

func allowed(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
