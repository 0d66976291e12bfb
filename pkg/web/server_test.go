package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-depthguard/pkg/depth"
	"github.com/teslashibe/go-depthguard/pkg/detector"
	"github.com/teslashibe/go-depthguard/pkg/protocol"
	"github.com/teslashibe/go-depthguard/pkg/proximity"
)

type fakeDetector struct {
	mu        sync.Mutex
	status    detector.Status
	submitted []*depth.Frame
}

func (f *fakeDetector) Status() detector.Status { return f.status }
func (f *fakeDetector) Region() depth.Region    { return depth.DefaultRegion() }

func (f *fakeDetector) Validate(width, height int) error {
	return depth.DefaultRegion().Validate(width, height)
}

func (f *fakeDetector) Submit(fr *depth.Frame) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, fr)
	return true
}

func (f *fakeDetector) Subscribe(func(detector.Status)) func() { return func() {} }

type recordingAnnouncer struct {
	texts chan string
}

func (a *recordingAnnouncer) Announce(ctx context.Context, text string) error {
	a.texts <- text
	return nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *fakeDetector) {
	t.Helper()
	det := &fakeDetector{status: detector.Status{
		Seq:        3,
		HasReading: true,
		DistanceCm: 57,
		Category:   "close",
		State:      proximity.Near,
	}}
	return NewServer(Config{Port: 0}, det, opts...), det
}

func TestServer_Status(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/status", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status code = %d", resp.StatusCode)
	}

	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["distance_cm"] != float64(57) {
		t.Errorf("distance_cm = %v", got["distance_cm"])
	}
	if got["state"] != "near" {
		t.Errorf("state = %v", got["state"])
	}
}

func TestServer_Config(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/config", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var got struct {
		Region depth.Region     `json:"region"`
		Alert  proximity.Config `json:"alert"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Region != depth.DefaultRegion() {
		t.Errorf("region = %+v", got.Region)
	}
	if got.Alert.ThresholdMeters != 1.0 {
		t.Errorf("threshold = %v", got.Alert.ThresholdMeters)
	}
}

func TestServer_Picture(t *testing.T) {
	t.Run("silent by default", func(t *testing.T) {
		s, _ := newTestServer(t)
		resp, err := s.app.Test(httptest.NewRequest("POST", "/api/picture", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != 501 {
			t.Errorf("status code = %d, want 501", resp.StatusCode)
		}
	})

	t.Run("speaks phrase", func(t *testing.T) {
		ann := &recordingAnnouncer{texts: make(chan string, 1)}
		s, _ := newTestServer(t, WithPictureAnnouncer(ann, "Picture taken"))

		resp, err := s.app.Test(httptest.NewRequest("POST", "/api/picture", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != 501 {
			t.Errorf("status code = %d, want 501", resp.StatusCode)
		}

		select {
		case text := <-ann.texts:
			if text != "Picture taken" {
				t.Errorf("announced %q", text)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("phrase not announced")
		}
	})
}

func TestServer_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "depthguard_test_total", Help: "test"}))
	s, _ := newTestServer(t, WithGatherer(reg))

	resp, err := s.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("healthz: %v %v", resp, err)
	}

	resp, err = s.app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "depthguard_test_total") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest("GET", "/ws/frames", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("status code = %d, want 426", resp.StatusCode)
	}
}

func helloBytes(t *testing.T, smoothed bool, w, h int) []byte {
	t.Helper()
	msg, err := protocol.NewHelloMessage("test", smoothed, w, h)
	if err != nil {
		t.Fatalf("NewHelloMessage: %v", err)
	}
	data, _ := msg.Bytes()
	return data
}

func TestServer_CheckHello(t *testing.T) {
	s, _ := newTestServer(t)
	ping, _ := protocol.NewPingMessage(1)
	pingBytes, _ := ping.Bytes()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid", helloBytes(t, true, 256, 192), nil},
		{"no smoothed depth", helloBytes(t, false, 256, 192), ErrUnsupportedDevice},
		{"frame too small for region", helloBytes(t, true, 160, 120), depth.ErrRegionOutOfBounds},
		{"absurd dimensions", helloBytes(t, true, 100000, 100000), errBadHello},
		{"not json", []byte("hi"), errBadHello},
		{"wrong type", pingBytes, errBadHello},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.checkHello(tt.data)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkHello() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServer_Ingest(t *testing.T) {
	s, det := newTestServer(t)

	frame := &depth.Frame{Width: 2, Height: 1, Depth: []float32{0.5, 0.7}}
	if err := s.ingest(protocol.EncodeFrame(frame)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := s.ingest([]byte("garbage")); !errors.Is(err, protocol.ErrShortFrame) {
		t.Errorf("expected ErrShortFrame, got %v", err)
	}

	if len(det.submitted) != 1 {
		t.Fatalf("submitted %d frames, want 1", len(det.submitted))
	}
	if det.submitted[0].Timestamp.IsZero() {
		t.Error("ingest should stamp frames without a timestamp")
	}
}

func TestServer_ControlPing(t *testing.T) {
	s, _ := newTestServer(t)
	ping, _ := protocol.NewPingMessage(42)
	data, _ := ping.Bytes()

	reply := s.control(data)
	msg, err := protocol.ParseMessage(reply)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	var pd protocol.PingData
	msg.ParseData(&pd)
	if msg.Type != protocol.TypePong || pd.Seq != 42 {
		t.Errorf("unexpected reply %s", reply)
	}

	if s.control([]byte(`{"type":"status"}`)) != nil {
		t.Error("non-ping messages get no reply")
	}
}
