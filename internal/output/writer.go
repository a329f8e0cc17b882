package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/JasonVinion/Pengu/internal/analytics"
	"github.com/JasonVinion/Pengu/internal/model"
)

var (
	statusWorking = color.New(color.FgGreen).SprintFunc()
	statusTimeout = color.New(color.FgYellow).SprintFunc()
	statusFailed  = color.New(color.FgRed).SprintFunc()
)

func coloredStatus(s model.Status) string {
	switch s {
	case model.StatusWorking:
		return statusWorking(string(s))
	case model.StatusTimeout:
		return statusTimeout(string(s))
	default:
		return statusFailed(string(s))
	}
}

// PrintResultsTable prints a human-readable table of per-proxy results.
func PrintResultsTable(w io.Writer, results []model.ProxyResult) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PROXY\tSTATUS\tLAT(ms)\tANONYMITY\tEXIT IP\tCOUNTRY\tCITY\tISP\tFRAUD\tERROR")

	for _, r := range results {
		lat := "-"
		if r.Status == model.StatusWorking {
			lat = strconv.FormatInt(r.LatencyMs, 10)
		}

		anon := "-"
		if r.Status == model.StatusWorking {
			anon = string(r.Anonymity)
		}

		fraud := "-"
		if r.FraudScore > 0 {
			fraud = fmt.Sprintf("%.1f", r.FraudScore)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			fmt.Sprintf("%s://%s", r.Endpoint.Scheme, r.Endpoint.Addr()),
			coloredStatus(r.Status),
			lat,
			anon,
			dashIfEmpty(r.ExitIP),
			dashIfEmpty(r.Country),
			dashIfEmpty(r.City),
			dashIfEmpty(r.ISP),
			fraud,
			dashIfEmpty(r.Error),
		)
	}

	tw.Flush()
}

// PrintSummary prints the aggregated run stats.
func PrintSummary(w io.Writer, run analytics.ValidationRun) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Total proxies:        %d\n", run.Total)
	fmt.Fprintf(w, "  Working:              %d\n", run.Working)
	fmt.Fprintf(w, "  Failed:               %d\n", run.Failed)
	fmt.Fprintf(w, "  Timed out:            %d\n", run.TimedOut)
	for scheme, n := range run.WorkingByScheme {
		fmt.Fprintf(w, "  Working %-12s  %d\n", string(scheme)+":", n)
	}
	for anon, n := range run.AnonymityCounts {
		fmt.Fprintf(w, "  %-20s  %d\n", string(anon)+":", n)
	}
	fmt.Fprintf(w, "  Avg latency:          %d ms\n", run.AvgLatencyMs)
	fmt.Fprintf(w, "  Run time:             %.2f s\n", float64(run.ElapsedMs)/1000.0)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func boolToYN(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// WriteFile writes all results plus the summary to path in json or csv.
func WriteFile(path, format string, results []model.ProxyResult, run analytics.ValidationRun) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "json":
		return writeJSON(f, results, run)
	case "csv":
		return writeCSV(f, results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeJSON(w io.Writer, results []model.ProxyResult, run analytics.ValidationRun) error {
	payload := struct {
		Results []model.ProxyResult     `json:"results"`
		Summary analytics.ValidationRun `json:"summary"`
	}{
		Results: results,
		Summary: run,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// writeCSV writes per-proxy rows; the summary is json-only.
func writeCSV(w io.Writer, results []model.ProxyResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"scheme", "host", "port", "status", "latency_ms",
		"anonymity", "exit_ip", "country", "city", "isp",
		"fraud_score", "error", "smtp", "pop3", "imap", "udp",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		var caps model.ProxyCapabilities
		if r.Capabilities != nil {
			caps = *r.Capabilities
		}
		row := []string{
			string(r.Endpoint.Scheme),
			r.Endpoint.Host,
			strconv.Itoa(r.Endpoint.Port),
			string(r.Status),
			strconv.FormatInt(r.LatencyMs, 10),
			string(r.Anonymity),
			r.ExitIP,
			r.Country,
			r.City,
			r.ISP,
			fmt.Sprintf("%.1f", r.FraudScore),
			r.Error,
			boolToYN(caps.SMTP),
			boolToYN(caps.POP3),
			boolToYN(caps.IMAP),
			boolToYN(caps.UDP),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ListFilter narrows the working-proxy export. Zero value keeps every
// working proxy.
type ListFilter struct {
	Scheme    model.Scheme
	Anonymity model.Anonymity
}

func (f ListFilter) keep(r model.ProxyResult) bool {
	if r.Status != model.StatusWorking {
		return false
	}
	if f.Scheme != "" && r.Endpoint.Scheme != f.Scheme {
		return false
	}
	if f.Anonymity != "" && r.Anonymity != f.Anonymity {
		return false
	}
	return true
}

// WriteProxyList writes one canonical URL per matching working proxy, the
// shape other tools ingest directly.
func WriteProxyList(w io.Writer, results []model.ProxyResult, f ListFilter) (int, error) {
	n := 0
	for _, r := range results {
		if !f.keep(r) {
			continue
		}
		if _, err := fmt.Fprintln(w, r.Endpoint.URL()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
