package output

import (
	"strings"
	"testing"

	"github.com/JasonVinion/Pengu/internal/model"
)

func sampleResults() []model.ProxyResult {
	return []model.ProxyResult{
		{
			Endpoint:  model.ProxyEndpoint{Scheme: model.SchemeHTTP, Host: "10.0.0.1", Port: 8080},
			Status:    model.StatusWorking,
			Anonymity: model.AnonymityElite,
		},
		{
			Endpoint:  model.ProxyEndpoint{Scheme: model.SchemeSOCKS5, Host: "10.0.0.2", Port: 1080, Username: "u", Password: "p"},
			Status:    model.StatusWorking,
			Anonymity: model.AnonymityAnonymous,
		},
		{
			Endpoint: model.ProxyEndpoint{Scheme: model.SchemeHTTP, Host: "10.0.0.3", Port: 3128},
			Status:   model.StatusFailed,
			Error:    "connection refused",
		},
	}
}

func TestWriteProxyListAllWorking(t *testing.T) {
	var sb strings.Builder
	n, err := WriteProxyList(&sb, sampleResults(), ListFilter{})
	if err != nil {
		t.Fatalf("WriteProxyList: %v", err)
	}
	if n != 2 {
		t.Fatalf("wrote %d lines, want 2", n)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if lines[0] != "http://10.0.0.1:8080" {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if lines[1] != "socks5://u:p@10.0.0.2:1080" {
		t.Fatalf("line 1 = %q", lines[1])
	}
}

func TestWriteProxyListFilters(t *testing.T) {
	var sb strings.Builder
	n, err := WriteProxyList(&sb, sampleResults(), ListFilter{Scheme: model.SchemeSOCKS5, Anonymity: model.AnonymityAnonymous})
	if err != nil {
		t.Fatalf("WriteProxyList: %v", err)
	}
	if n != 1 {
		t.Fatalf("wrote %d lines, want 1", n)
	}
	if got := strings.TrimSpace(sb.String()); got != "socks5://u:p@10.0.0.2:1080" {
		t.Fatalf("got %q", got)
	}

	sb.Reset()
	n, _ = WriteProxyList(&sb, sampleResults(), ListFilter{Anonymity: model.AnonymityTransparent})
	if n != 0 || sb.Len() != 0 {
		t.Fatalf("transparent filter matched %d lines", n)
	}
}
