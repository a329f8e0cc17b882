package model

// GeoInfo describes geographical / provider information associated with an IP.
type GeoInfo struct {
	Country string
	City    string
	ISP     string
}

// IPResolver resolves an exit IP to geo/provider info. A nil resolver
// disables enrichment.
type IPResolver interface {
	Lookup(ip string) (GeoInfo, error)
}

// Config is the configuration surface consumed by one validation run.
// It is fixed for the lifetime of the run.
type Config struct {
	ProbeTarget    string // echo endpoint, e.g. "http://httpbin.org/get"
	TimeoutSeconds int    // per-endpoint budget for the whole handshake+probe
	Concurrency    int    // worker count; clamped to [1, Ceiling]
	Ceiling        int    // hardware-derived safety ceiling (0 = no cap)
	Retries        int    // attempts per endpoint (min 1)

	RealClientIP string // our unproxied public IP, used by the classifier

	CheckCapabilities bool // probe smtp/pop3/imap/udp on working SOCKS5 proxies
	Verbose           bool

	Resolver IPResolver
}
