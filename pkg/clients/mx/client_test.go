package mx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs an in-process UDP nameserver serving a fixed zone.
func startServer(t *testing.T, zone map[string][]dns.RR, rcode map[string]int) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(req)
			name := req.Question[0].Name
			if code, ok := rcode[name]; ok {
				resp.Rcode = code
			} else {
				resp.Answer = zone[name]
			}
			_ = w.WriteMsg(resp)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns server did not start")
	}
	return pc.LocalAddr().String()
}

func mxRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func TestClient_LookupMX_SortsByPreference(t *testing.T) {
	addr := startServer(t, map[string][]dns.RR{
		"example.com.": {
			mxRR(t, "example.com. 300 IN MX 20 backup.example.com."),
			mxRR(t, "example.com. 300 IN MX 10 mail.example.com."),
		},
	}, nil)

	records, err := NewClient(addr, time.Second).LookupMX(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "mail.example.com", records[0].Host)
	assert.Equal(t, uint16(10), records[0].Pref)
	assert.Equal(t, "backup.example.com", records[1].Host)
}

func TestClient_LookupMX_NoAnswer(t *testing.T) {
	addr := startServer(t, nil, nil)

	_, err := NewClient(addr, time.Second).LookupMX(context.Background(), "empty.example")
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestClient_LookupMX_NXDomain(t *testing.T) {
	addr := startServer(t, nil, map[string]int{"missing.example.": dns.RcodeNameError})

	_, err := NewClient(addr, time.Second).LookupMX(context.Background(), "missing.example")
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestClient_LookupMX_ServFail(t *testing.T) {
	addr := startServer(t, nil, map[string]int{"broken.example.": dns.RcodeServerFailure})

	_, err := NewClient(addr, time.Second).LookupMX(context.Background(), "broken.example")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRecords)
}

func TestClient_LookupMX_NullMX(t *testing.T) {
	addr := startServer(t, map[string][]dns.RR{
		"nomail.example.": {mxRR(t, "nomail.example. 300 IN MX 0 .")},
	}, nil)

	records, err := NewClient(addr, time.Second).LookupMX(context.Background(), "nomail.example")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ".", records[0].Host)
}

func TestClient_LookupMX_InvalidDomain(t *testing.T) {
	_, err := NewClient("127.0.0.1:1", time.Second).LookupMX(context.Background(), "bad..domain")
	assert.Error(t, err)
}

func TestNewClient_DefaultPort(t *testing.T) {
	c := NewClient("9.9.9.9", time.Second).(*clientImpl)
	assert.Equal(t, "9.9.9.9:53", c.server)
}
