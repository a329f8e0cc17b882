package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/JasonVinion/Pengu/internal/analytics"
	"github.com/JasonVinion/Pengu/internal/checker"
	"github.com/JasonVinion/Pengu/internal/config"
	"github.com/JasonVinion/Pengu/internal/geoip"
	"github.com/JasonVinion/Pengu/internal/logging"
	"github.com/JasonVinion/Pengu/internal/model"
	"github.com/JasonVinion/Pengu/internal/output"
	"github.com/JasonVinion/Pengu/internal/parser"
	"github.com/JasonVinion/Pengu/internal/sysinfo"
)

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		inputFile     string
		outputFile    string
		outputFormat  string
		listFile      string
		listScheme    string
		listAnonymity string
		geoCityDB     = env.GeoIPCityDB
		geoASNDB      = env.GeoIPASNDB
		cfg           model.Config
	)

	flag.StringVar(&inputFile, "input", "", "path to file with proxy list")
	flag.StringVar(&cfg.ProbeTarget, "probe-target", env.ProbeTarget, "echo service used to validate proxies (host[:port][/path])")
	flag.IntVar(&cfg.TimeoutSeconds, "timeout", env.TimeoutSeconds, "timeout in seconds for each proxy check")
	flag.IntVar(&cfg.Concurrency, "concurrency", env.Concurrency, "number of concurrent workers (0 = size from hardware)")
	flag.IntVar(&cfg.Retries, "retries", env.Retries, "number of attempts per proxy (min 1)")
	flag.BoolVar(&cfg.CheckCapabilities, "check-capabilities", env.CheckCapabilities, "probe smtp/pop3/imap/udp capabilities on socks5 proxies")
	flag.BoolVar(&cfg.Verbose, "verbose", env.Verbose, "enable debug logs")
	flag.StringVar(&outputFile, "output", "", "optional path to write results (json/csv)")
	flag.StringVar(&outputFormat, "format", "json", "output format: json | csv")
	flag.StringVar(&listFile, "proxy-list", "", "optional path to write working proxies, one URL per line")
	flag.StringVar(&listScheme, "list-scheme", "", "restrict -proxy-list to one scheme (http|https|socks4|socks5)")
	flag.StringVar(&listAnonymity, "list-anonymity", "", "restrict -proxy-list to one level (elite|anonymous|transparent)")
	flag.StringVar(&geoCityDB, "geoip-city", geoCityDB, "path to GeoLite2-City.mmdb")
	flag.StringVar(&geoASNDB, "geoip-asn", geoASNDB, "path to GeoLite2-ASN.mmdb")
	flag.Parse()

	log := logging.NewLogger(cfg.Verbose)

	if inputFile == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoints, parseErrs, err := parser.LoadFromFile(inputFile)
	if err != nil {
		log.Error("failed to load proxies", "err", err)
		os.Exit(1)
	}
	for _, pe := range parseErrs {
		log.Warn("skipping malformed line", "line", pe.Line, "reason", pe.Msg)
	}
	log.Info("proxies loaded", "count", len(endpoints), "rejected", len(parseErrs))
	if len(endpoints) == 0 {
		log.Error("no valid proxies in input")
		os.Exit(1)
	}

	hw := sysinfo.Detect(ctx)
	advice := sysinfo.Recommend(hw)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = advice.Recommended
	}
	cfg.Ceiling = advice.Ceiling
	log.Debug("hardware detected",
		"cpu_cores", hw.CPUCores,
		"available_mb", hw.AvailableMemoryMB,
		"recommended", advice.Recommended,
		"ceiling", advice.Ceiling,
	)

	if geoCityDB != "" || geoASNDB != "" {
		db, err := geoip.Open(geoCityDB, geoASNDB)
		if err != nil {
			log.Error("failed to open geoip database", "err", err)
			os.Exit(1)
		}
		if db != nil {
			defer db.Close()
			cfg.Resolver = db
		}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if ip, err := checker.DiscoverClientIP(ctx, cfg.ProbeTarget, timeout); err != nil {
		log.Warn("could not discover client ip, anonymity will be unknown", "err", err)
	} else {
		cfg.RealClientIP = ip
		log.Debug("client ip discovered", "ip", ip)
	}

	chk, err := checker.New(cfg)
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log.Info("starting validation run",
		"proxies", len(endpoints),
		"concurrency", chk.Concurrency(),
		"timeout_seconds", cfg.TimeoutSeconds,
		"retries", cfg.Retries,
		"probe_target", cfg.ProbeTarget,
	)

	bar := progressbar.NewOptions(len(endpoints),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("validating"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	start := time.Now()
	agg := analytics.NewAggregator()
	for r := range chk.RunBatch(ctx, endpoints) {
		agg.Observe(r)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	run, results := agg.Finalize(time.Since(start))
	if ctx.Err() != nil {
		log.Warn("run interrupted, reporting partial results", "completed", run.Total)
	}
	log.Info("run finished",
		"total", run.Total,
		"working", run.Working,
		"failed", run.Failed,
		"timed_out", run.TimedOut,
		"elapsed_ms", run.ElapsedMs,
	)

	output.PrintResultsTable(os.Stdout, results)
	output.PrintSummary(os.Stdout, run)

	if outputFile != "" {
		if err := output.WriteFile(outputFile, outputFormat, results, run); err != nil {
			log.Error("failed to write output file", "err", err, "path", outputFile)
		} else {
			log.Info("results written", "path", outputFile, "format", outputFormat)
		}
	}

	if listFile != "" {
		filter := output.ListFilter{}
		if listScheme != "" {
			s, ok := model.ParseScheme(listScheme)
			if !ok {
				log.Error("unknown scheme for -list-scheme", "scheme", listScheme)
				os.Exit(1)
			}
			filter.Scheme = s
		}
		if listAnonymity != "" {
			filter.Anonymity = model.Anonymity(listAnonymity)
		}
		f, err := os.Create(listFile)
		if err != nil {
			log.Error("failed to create proxy list", "err", err, "path", listFile)
			os.Exit(1)
		}
		n, err := output.WriteProxyList(f, results, filter)
		f.Close()
		if err != nil {
			log.Error("failed to write proxy list", "err", err, "path", listFile)
		} else {
			log.Info("proxy list written", "path", listFile, "count", n)
		}
	}
}
