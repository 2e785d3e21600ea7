package dispenser

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/kitty3000/core/discovery"
	"github.com/kilianp07/kitty3000/core/model"
	"github.com/kilianp07/kitty3000/core/motor"
	"github.com/kilianp07/kitty3000/core/mqtt"
)

type publication struct {
	topic    string
	payload  string
	retained bool
}

type fakeClient struct {
	mu         sync.Mutex
	pubs       []publication
	subs       map[string]mqtt.Handler
	subCalls   []string
	publishErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{subs: make(map[string]mqtt.Handler)}
}

func (f *fakeClient) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.pubs = append(f.pubs, publication{topic: topic, payload: string(payload), retained: retained})
	return nil
}

func (f *fakeClient) Subscribe(topic string, h mqtt.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = h
	f.subCalls = append(f.subCalls, topic)
	return nil
}

func (f *fakeClient) OnConnect(func()) {}

// deliver simulates an inbound publish on a subscribed topic.
func (f *fakeClient) deliver(topic, payload string) bool {
	f.mu.Lock()
	h, ok := f.subs[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(model.Message{Topic: topic, Payload: []byte(payload)})
	return true
}

func (f *fakeClient) published(topic string) []publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publication
	for _, p := range f.pubs {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type recordingMotor struct {
	mu     sync.Mutex
	angles []float64
	steps  []int
	err    error
	// during runs inside RotateByAngle, simulating work while the motor turns
	during func()
}

func (m *recordingMotor) RotateByAngle(_ context.Context, degrees float64) error {
	if m.during != nil {
		m.during()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.angles = append(m.angles, degrees)
	return nil
}

func (m *recordingMotor) Step(_ context.Context, count int, dir motor.Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, count*int(dir))
	return m.err
}

func (m *recordingMotor) rotations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.angles...)
}

type fakeDiscovery struct {
	mu      sync.Mutex
	devices []discovery.Device
	err     error
}

func (f *fakeDiscovery) Publish(_ context.Context, dev discovery.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, dev)
	return f.err
}

func (f *fakeDiscovery) calls() []discovery.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]discovery.Device(nil), f.devices...)
}

// recordingLogger keeps formatted messages per level.
type recordingLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (r *recordingLogger) add(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		r.lines = map[string][]string{}
	}
	r.lines[level] = append(r.lines[level], fmt.Sprintf(format, args...))
}

func (r *recordingLogger) at(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines[level]...)
}

func (r *recordingLogger) Debugf(f string, a ...any)         { r.add("debug", f, a...) }
func (r *recordingLogger) Debugw(m string, _ map[string]any) { r.add("debug", "%s", m) }
func (r *recordingLogger) Infof(f string, a ...any)          { r.add("info", f, a...) }
func (r *recordingLogger) Infow(m string, _ map[string]any)  { r.add("info", "%s", m) }
func (r *recordingLogger) Warnf(f string, a ...any)          { r.add("warn", f, a...) }
func (r *recordingLogger) Errorf(f string, a ...any)         { r.add("error", f, a...) }
