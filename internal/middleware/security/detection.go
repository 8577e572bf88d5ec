package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	applog "granabox/internal/log"
)

var (
	attackPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}
	blockedMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

const maxURLLength = 2048

// DetectionMetrics counts what the detector saw.
type DetectionMetrics struct {
	Suspicious int64 `json:"suspicious"`
	Blocked    int64 `json:"blocked"`
}

// Detector flags requests that look like probes and resolves client IPs
// behind trusted proxies.
type Detector struct {
	trustedProxies []*net.IPNet
	suspicious     atomic.Int64
	blocked        atomic.Int64
}

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("::1/128"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("parse CIDR %s: %v", cidr, err))
	}
	return network
}

// Inspect returns why a request looks suspicious, or "" when it does not.
func (d *Detector) Inspect(r *http.Request) string {
	if blockedMethods[r.Method] {
		return "method " + r.Method
	}
	if len(r.URL.String()) > maxURLLength {
		return "url too long"
	}
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	if unescaped, err := url.QueryUnescape(query); err == nil {
		query = unescaped
	}
	for _, p := range attackPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return "pattern " + p
		}
	}
	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "agent " + a
		}
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarding chain"
	}
	return ""
}

// Middleware logs suspicious requests and rejects them with 400, or 405 for
// blocked methods.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.Inspect(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}
		d.suspicious.Add(1)
		d.blocked.Add(1)
		applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request blocked",
			"reason", reason,
			applog.FieldClientIP, d.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		if blockedMethods[r.Method] {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.Error(w, "bad request", http.StatusBadRequest)
	})
}

// ExtractClientIP returns the caller's IP. Forwarding headers are trusted
// only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	ip := net.ParseIP(direct)
	if ip == nil || !d.isTrustedProxy(ip) {
		return direct
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return direct
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, n := range d.trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy trusts forwarding headers from another network.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

func (d *Detector) Metrics() DetectionMetrics {
	return DetectionMetrics{Suspicious: d.suspicious.Load(), Blocked: d.blocked.Load()}
}
