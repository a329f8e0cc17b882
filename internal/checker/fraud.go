package checker

import (
	"net"
	"strings"
)

// Substrings in ISP names that indicate datacenter or hosting infrastructure
// rather than a residential connection.
var hostingKeywords = []string{
	"cloud", "hosting", "data", "server", "colo",
	"digitalocean", "aws", "amazon", "google", "azure",
	"hetzner", "ovh",
}

// EstimateFraudScore produces a heuristic risk score in 0..100, higher
// meaning more likely to be flagged by anti-abuse systems. Datacenter exits
// score worse than residential ones; an exit we cannot even parse scores
// worst of all.
func EstimateFraudScore(exitIP, isp string) float64 {
	if exitIP == "" {
		return 80.0
	}
	ip := net.ParseIP(exitIP)
	if ip == nil {
		return 90.0
	}
	// A private or loopback exit means the echo never left the local
	// network and the address is useless as an identity.
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return 95.0
	}

	lower := strings.ToLower(isp)
	for _, kw := range hostingKeywords {
		if strings.Contains(lower, kw) {
			return 70.0
		}
	}
	return 20.0
}
