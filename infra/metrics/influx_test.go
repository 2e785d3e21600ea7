package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/kitty3000/core/events"
	coremetrics "github.com/kilianp07/kitty3000/core/metrics"
	"github.com/kilianp07/kitty3000/core/model"
)

func TestInfluxSink_RecordDispense(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket", Device: "1"})
	defer sink.Close()
	now := time.Now()
	require.NoError(t, sink.RecordDispense(events.DispenseEvent{TreatsRemaining: 9, Counter: 2, Time: now}))

	p := write.NewPointWithMeasurement("dispense").
		AddTag("device", "1").
		AddField("treats_remaining", 9).
		AddField("counter", 2).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	assert.Equal(t, expected, strings.TrimSpace(body))
}

func TestInfluxSink_RecordCommand(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()
	require.NoError(t, sink.RecordCommand(events.CommandEvent{Command: model.CommandAdjust, Time: time.Now()}))
	assert.True(t, strings.HasPrefix(body, "command_handled,command=adjust "), body)
	assert.Contains(t, body, "success=true")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	_, ok := sink.(coremetrics.NopSink)
	assert.True(t, ok, "expected NopSink, got %T", sink)
}
