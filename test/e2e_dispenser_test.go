//go:build !no_containers

package test

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/kitty3000/app"
	"github.com/kilianp07/kitty3000/config"
	"github.com/kilianp07/kitty3000/core/factory"
	coremetrics "github.com/kilianp07/kitty3000/core/metrics"
	"github.com/kilianp07/kitty3000/infra/homeassistant"
	"github.com/kilianp07/kitty3000/infra/mqtt"
	"github.com/kilianp07/kitty3000/test/util"
)

// observer records the last payload seen on every topic.
type observer struct {
	mu   sync.Mutex
	last map[string]string
}

func (o *observer) handle(_ paho.Client, m paho.Message) {
	o.mu.Lock()
	o.last[m.Topic()] = string(m.Payload())
	o.mu.Unlock()
}

func (o *observer) get(topic string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.last[topic]
	return v, ok
}

func TestE2E_DispenserOverMosquitto(t *testing.T) {
	if testing.Short() {
		t.Skip("container test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto not available: %v", err)
	}
	defer cleanup()

	promAddr, err := util.FreeAddr()
	require.NoError(t, err)

	cfg := &config.Config{
		Device: config.DeviceConfig{ID: "e2e", Capacity: 10, Version: "test"},
		MQTT:   mqtt.Config{Broker: broker, ClientID: "kitty3000-e2e"},
		Motor:  factory.ModuleConfig{Type: "sim"},
		Dispenser: config.DispenserConfig{
			IdleInterval:       20 * time.Millisecond,
			ConfigPollInterval: 20 * time.Millisecond,
		},
		Discovery: homeassistant.Config{Enabled: true},
		Metrics: coremetrics.Config{
			Sinks:  []factory.ModuleConfig{{Type: "prometheus"}},
			Listen: promAddr,
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	obs := &observer{last: map[string]string{}}
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("observer")
	ob := paho.NewClient(opts)
	require.True(t, ob.Connect().WaitTimeout(5*time.Second))
	defer ob.Disconnect(100)
	require.NoError(t, waitToken(ob.Subscribe("esp32/kitty3000/e2e/#", 0, obs.handle)))
	require.NoError(t, waitToken(ob.Subscribe("homeassistant/#", 0, obs.handle)))

	svc, err := app.New(cfg)
	require.NoError(t, err)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()

	require.Eventually(t, func() bool {
		v, _ := obs.get(svc.Topics.Availability)
		return v == "online"
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, waitToken(ob.Publish(svc.Topics.Treats, 0, true, "5")))
	require.NoError(t, waitToken(ob.Publish(svc.Topics.Config, 0, true,
		`{"name":"Kitty","adjustment-freq":2,"adjustment-angle":5}`)))

	require.Eventually(t, func() bool {
		_, ok := obs.get("homeassistant/button/kitty3000-e2e-dispense/config")
		return ok
	}, 5*time.Second, 50*time.Millisecond)
	_, ok := obs.get("homeassistant/number/kitty3000-e2e/treats/config")
	assert.True(t, ok)

	require.NoError(t, waitToken(ob.Publish(svc.Topics.Command, 0, false, "dispense")))
	require.Eventually(t, func() bool {
		v, _ := obs.get(svc.Topics.Treats)
		return v == "4"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, svc.State.Counter())

	require.NoError(t, waitToken(ob.Publish(svc.Topics.Command, 0, false, "dispense")))
	require.Eventually(t, func() bool {
		v, _ := obs.get(svc.Topics.Treats)
		return v == "3"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, svc.State.Counter())

	mctx, mcancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer mcancel()
	require.NoError(t, util.WaitForMetric(mctx, "http://"+promAddr+"/metrics", "kitty3000_dispenses_total 2"))

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
	require.NoError(t, svc.Close())
	require.Eventually(t, func() bool {
		v, _ := obs.get(svc.Topics.Availability)
		return v == "offline"
	}, 5*time.Second, 50*time.Millisecond)
}

func waitToken(tok paho.Token) error {
	tok.WaitTimeout(5 * time.Second)
	return tok.Error()
}
