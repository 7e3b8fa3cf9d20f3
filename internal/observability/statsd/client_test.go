package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestFormatLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		metric string
		global map[string]string
		local  map[string]string
		want   string
	}{
		{name: "no prefix no tags", metric: "ce.task.transition", want: "ce.task.transition:1|c"},
		{name: "prefix trimmed", prefix: " .cequeue. ", metric: "sweep", want: "cequeue.sweep:1|c"},
		{name: "name normalised", metric: " task/claimed..ok ", want: "task_claimed.ok:1|c"},
		{name: "empty name", metric: "  ", want: ""},
		{
			name:   "local tags override global",
			metric: "m",
			global: map[string]string{"env": "prod", " node ": " n1 "},
			local:  map[string]string{"env": "stage", "": "ignored", "result": "success"},
			want:   "m:1|c|#env:stage,node:n1,result:success",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatLine(tt.prefix, tt.metric, "1|c", tt.global, tt.local)
			if got != tt.want {
				t.Fatalf("FormatLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{prefix: "ce", conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected client to be enabled with a connection")
	}

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		got <- string(buf[:n])
	}()

	client.Timing("task.duration", 1500*time.Millisecond, map[string]string{"job_type": "REPORT"})
	if line := <-got; line != "ce.task.duration:1500|ms|#job_type:REPORT" {
		t.Fatalf("unexpected line %q", line)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to be disabled after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	// Writes after Close are dropped.
	client.Count("ignored", 1, nil)
}

func TestNilAndDisabledClients(t *testing.T) {
	t.Parallel()

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("a", 2, map[string]string{"k": "v"})
	r.Count("a", 3, nil)
	r.Gauge("g", 1.5, nil)
	r.Timing("t", 250*time.Millisecond, nil)

	if got := r.Sum("a"); got != 5 {
		t.Fatalf("Sum(a) = %d, want 5", got)
	}
	ms := r.Metrics()
	if len(ms) != 4 || ms[3].Value != 250 {
		t.Fatalf("unexpected metrics %+v", ms)
	}
}
