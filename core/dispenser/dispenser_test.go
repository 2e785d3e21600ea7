package dispenser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/kitty3000/core/events"
	"github.com/kilianp07/kitty3000/core/model"
	"github.com/kilianp07/kitty3000/infra/logger"
	"github.com/kilianp07/kitty3000/internal/eventbus"
)

var kitty = model.RemoteConfig{Name: "Kitty", AdjustmentFreq: 3, AdjustmentAngle: 15}

type harness struct {
	state  *State
	client *fakeClient
	motor  *recordingMotor
	disp   *Dispenser
	topics Topics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		state:  NewState(),
		client: newFakeClient(),
		motor:  &recordingMotor{},
		topics: NewTopics("esp32/kitty3000", "1"),
	}
	d, err := New(h.state, h.client, h.motor, h.topics, Options{
		DeviceID:           "1",
		Capacity:           40,
		IdleInterval:       5 * time.Millisecond,
		ConfigPollInterval: 5 * time.Millisecond,
	}, logger.NopLogger{})
	require.NoError(t, err)
	h.disp = d
	return h
}

func (h *harness) command(t *testing.T, cmd model.Command) {
	t.Helper()
	h.state.SetPending(cmd)
	require.NoError(t, h.disp.Tick(context.Background()))
}

func treatPayloads(pubs []publication) []string {
	out := make([]string, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, p.payload)
	}
	return out
}

func TestNew_NilParameters(t *testing.T) {
	_, err := New(nil, newFakeClient(), &recordingMotor{}, Topics{}, Options{}, logger.NopLogger{})
	assert.Error(t, err)
	_, err = New(NewState(), nil, &recordingMotor{}, Topics{}, Options{}, logger.NopLogger{})
	assert.Error(t, err)
}

func TestDispense_PeriodicAdjustment(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(10)

	for i := 0; i < 3; i++ {
		h.command(t, model.CommandDispense)
	}

	assert.Equal(t, 7, h.state.Treats())
	assert.Equal(t, 0, h.state.Counter())
	assert.Equal(t, []float64{DefaultDispenseAngle, DefaultDispenseAngle, DefaultDispenseAngle, -15}, h.motor.rotations())

	pubs := h.client.published(h.topics.Treats)
	assert.Equal(t, []string{"9", "8", "7"}, treatPayloads(pubs))
	for _, p := range pubs {
		assert.True(t, p.retained, "treat count must be retained")
	}
	cmd, _ := h.state.Pending()
	assert.Equal(t, model.CommandNone, cmd)
}

func TestDispense_OneAdjustmentPerCycle(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(model.RemoteConfig{Name: "Kitty", AdjustmentFreq: 2, AdjustmentAngle: 7.5})
	h.state.SetTreats(100)

	for i := 0; i < 7; i++ {
		h.command(t, model.CommandDispense)
	}

	var reverse int
	for _, a := range h.motor.rotations() {
		if a < 0 {
			reverse++
			assert.Equal(t, -7.5, a)
		}
	}
	assert.Equal(t, 3, reverse)
	assert.Equal(t, 1, h.state.Counter())
}

func TestDispense_TreatsNeverNegative(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(model.RemoteConfig{Name: "Kitty", AdjustmentFreq: 100, AdjustmentAngle: 15})
	h.state.SetTreats(1)

	for i := 0; i < 3; i++ {
		h.command(t, model.CommandDispense)
		assert.GreaterOrEqual(t, h.state.Treats(), 0)
	}

	assert.Equal(t, 0, h.state.Treats())
	// the mechanism still turns with an empty inventory
	assert.Len(t, h.motor.rotations(), 3)
	assert.Equal(t, []string{"0", "0", "0"}, treatPayloads(h.client.published(h.topics.Treats)))
}

func TestSetTreatCount_RepublishesUnchanged(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(5)

	h.command(t, model.CommandSetTreatCount)
	h.command(t, model.CommandSetTreatCount)

	pubs := h.client.published(h.topics.Treats)
	require.Len(t, pubs, 2)
	assert.Equal(t, pubs[0], pubs[1])
	assert.Equal(t, publication{topic: h.topics.Treats, payload: "5", retained: true}, pubs[0])
	assert.Equal(t, 5, h.state.Treats())
	assert.Empty(t, h.motor.rotations())
}

func TestSetTreatCount_WithoutConfig(t *testing.T) {
	h := newHarness(t)
	h.state.SetTreats(4)
	h.command(t, model.CommandSetTreatCount)
	assert.Equal(t, []string{"4"}, treatPayloads(h.client.published(h.topics.Treats)))
}

func TestAdjust_ForwardRotationOnly(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(10)
	h.command(t, model.CommandDispense)

	h.command(t, model.CommandAdjust)

	assert.Equal(t, []float64{DefaultDispenseAngle, 15}, h.motor.rotations())
	assert.Equal(t, 9, h.state.Treats())
	assert.Equal(t, 1, h.state.Counter())
	assert.Len(t, h.client.published(h.topics.Treats), 1)
}

func TestPending_LastWriteWins(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(10)
	h.client.subs[h.topics.Command] = h.disp.Router().HandleMessage

	require.True(t, h.client.deliver(h.topics.Command, "dispense"))
	require.True(t, h.client.deliver(h.topics.Command, "adjust"))
	require.NoError(t, h.disp.Tick(context.Background()))

	assert.Equal(t, []float64{15}, h.motor.rotations())
	assert.Equal(t, 10, h.state.Treats())
	cmd, _ := h.state.Pending()
	assert.Equal(t, model.CommandNone, cmd)
}

func TestPending_CommandDuringActionIsKept(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(10)
	h.motor.during = func() {
		h.motor.during = nil
		h.state.SetPending(model.CommandAdjust)
	}

	h.command(t, model.CommandDispense)

	cmd, _ := h.state.Pending()
	assert.Equal(t, model.CommandAdjust, cmd)
	require.NoError(t, h.disp.Tick(context.Background()))
	assert.Equal(t, []float64{DefaultDispenseAngle, 15}, h.motor.rotations())
}

func TestUnknownCommand_Idles(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)

	h.command(t, model.Command("stop"))

	cmd, _ := h.state.Pending()
	assert.Equal(t, model.Command("stop"), cmd)
	assert.Empty(t, h.motor.rotations())
	assert.Empty(t, h.client.published(h.topics.Treats))
}

func TestTick_NotConfigured(t *testing.T) {
	h := newHarness(t)
	h.state.SetPending(model.CommandDispense)
	err := h.disp.Tick(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	h.state.SetPending(model.CommandAdjust)
	err = h.disp.Tick(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, h.motor.rotations())
}

func TestTick_IdleHonoursContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.disp.Tick(ctx), context.Canceled)
}

func TestDispense_MotorFailure(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(10)
	h.motor.err = errors.New("driver fault")

	h.command(t, model.CommandDispense)

	assert.Equal(t, 10, h.state.Treats())
	assert.Equal(t, 0, h.state.Counter())
	assert.Empty(t, h.client.published(h.topics.Treats))
	cmd, _ := h.state.Pending()
	assert.Equal(t, model.CommandNone, cmd)
}

func TestDispense_PublishFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(2)
	h.client.publishErr = errors.New("offline")

	h.command(t, model.CommandDispense)

	assert.Equal(t, 1, h.state.Treats())
	cmd, _ := h.state.Pending()
	assert.Equal(t, model.CommandNone, cmd)
}

func TestOnConnect_SubscribesAndAnnouncesOnline(t *testing.T) {
	h := newHarness(t)

	h.disp.OnConnect()
	h.disp.OnConnect()

	assert.Equal(t, append(h.topics.Subscriptions(), h.topics.Subscriptions()...), h.client.subCalls)
	online := h.client.published(h.topics.Availability)
	require.Len(t, online, 2)
	for _, p := range online {
		assert.Equal(t, "online", p.payload)
		assert.True(t, p.retained)
	}
}

func TestRun_WaitsForConfig(t *testing.T) {
	h := newHarness(t)
	disc := &fakeDiscovery{}
	h.disp.SetDiscovery(disc)
	h.disp.OnConnect()
	h.state.SetTreats(10)
	h.client.deliver(h.topics.Command, "dispense")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.disp.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, h.motor.rotations(), "no actuation before configuration")
	assert.Empty(t, disc.calls())

	h.client.deliver(h.topics.Config, `{"name":"Kitty","adjustment-freq":3,"adjustment-angle":15}`)

	assert.Eventually(t, func() bool { return len(h.motor.rotations()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return h.state.Treats() == 9 }, time.Second, 5*time.Millisecond)
	devs := disc.calls()
	require.Len(t, devs, 1)
	assert.Equal(t, "Kitty", devs[0].Name)
	assert.Equal(t, 40, devs[0].Capacity)
	assert.Equal(t, h.topics.Availability, devs[0].AvailabilityTopic)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRun_DiscoveryFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.disp.SetDiscovery(&fakeDiscovery{err: errors.New("broker refused")})
	h.state.SetRemoteConfig(kitty)
	h.state.SetTreats(3)
	h.state.SetPending(model.CommandDispense)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.disp.Run(ctx) }()

	assert.Eventually(t, func() bool { return h.state.Treats() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestAnnounce_LogsOnlyWhenDiscoveryEnabled(t *testing.T) {
	h := newHarness(t)
	rec := &recordingLogger{}
	h.disp.log = rec

	h.disp.announce(context.Background(), kitty)
	assert.Empty(t, rec.at("info"))
	assert.Equal(t, []string{"discovery disabled, Kitty not announced"}, rec.at("debug"))

	h.disp.SetDiscovery(&fakeDiscovery{})
	h.disp.announce(context.Background(), kitty)
	assert.Equal(t, []string{"discovery configured for Kitty"}, rec.at("info"))
}

func TestRun_StopsWhileWaitingForConfig(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, h.disp.Run(ctx))
}

func TestEvents_Published(t *testing.T) {
	h := newHarness(t)
	bus := eventbus.New[events.Event]()
	ch := bus.Subscribe()
	h.disp.SetEventBus(bus)
	h.state.SetRemoteConfig(model.RemoteConfig{Name: "Kitty", AdjustmentFreq: 1, AdjustmentAngle: 10})
	h.state.SetTreats(2)

	h.command(t, model.CommandDispense)

	var got []events.Event
	for len(ch) > 0 {
		got = append(got, <-ch)
	}
	require.Len(t, got, 4)
	rec, ok := got[0].(events.RecalibrationEvent)
	require.True(t, ok, "expected recalibration first, got %T", got[0])
	assert.Equal(t, -10.0, rec.AngleDegrees)
	assert.Equal(t, "periodic", rec.Reason)
	disp, ok := got[1].(events.DispenseEvent)
	require.True(t, ok)
	assert.Equal(t, 1, disp.TreatsRemaining)
	assert.IsType(t, events.TreatsEvent{}, got[2])
	cmd, ok := got[3].(events.CommandEvent)
	require.True(t, ok)
	assert.Equal(t, model.CommandDispense, cmd.Command)
	assert.NoError(t, cmd.Err)
}
