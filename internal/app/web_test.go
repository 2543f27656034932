package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_radar/internal/estimator"
	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
	"github.com/relabs-tech/inertial_radar/internal/spatial"
)

type forwarded struct {
	topic   string
	payload []byte
}

type recorder struct {
	mu   sync.Mutex
	msgs []forwarded
}

func (r *recorder) forward(topic string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, forwarded{topic: topic, payload: payload})
	return nil
}

func (r *recorder) snapshot() []forwarded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]forwarded(nil), r.msgs...)
}

var testTopics = sensorTopics{orientation: "t/orientation", motion: "t/motion", reset: "t/reset"}

func statePayload(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(estimator.Snapshot{
		Position: spatial.Vector3{X: 1.5, Y: -2, Z: 0.25},
		Mode:     estimator.Active,
		Trail:    []estimator.TrailPoint{{X: 1.5, Y: -2, TimestampMs: 100}},
	})
	require.NoError(t, err)
	return b
}

func newTestServer(t *testing.T) (*webServer, *recorder, *httptest.Server) {
	t.Helper()
	rec := &recorder{}
	s := newWebServer(testTopics, rec.forward)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>radar</html>"), 0o644))

	srv := httptest.NewServer(s.routes(static))
	t.Cleanup(srv.Close)
	return s, rec, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestAPIStateBeforeAndAfterData(t *testing.T) {
	s, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, s.updateState(statePayload(t)))

	resp, err = http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap estimator.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, estimator.Active, snap.Mode)
	assert.Equal(t, 1.5, snap.Position.X)
	assert.Len(t, snap.Trail, 1)
}

func TestAPIPosition(t *testing.T) {
	s, _, srv := newTestServer(t)
	require.NoError(t, s.updateState(statePayload(t)))

	resp, err := http.Get(srv.URL + "/api/position")
	require.NoError(t, err)
	defer resp.Body.Close()

	var pos spatial.Vector3
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pos))
	assert.Equal(t, spatial.Vector3{X: 1.5, Y: -2, Z: 0.25}, pos)
}

func TestUpdateStateRejectsGarbage(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Error(t, s.updateState([]byte("{")))
	assert.Error(t, s.updateState([]byte(`{"mode":"flying"}`)))
}

func TestAPIReset(t *testing.T) {
	_, rec, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/reset")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	msgs := rec.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "t/reset", msgs[0].topic)
}

func TestStaticFiles(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "radar")
}

func TestStateWebsocketBroadcast(t *testing.T) {
	s, _, srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/state"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.size() == 1 }, time.Second, 5*time.Millisecond)

	payload := statePayload(t)
	require.NoError(t, s.updateState(payload))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	conn.Close()
	require.Eventually(t, func() bool { return s.hub.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSensorWebsocketForwards(t *testing.T) {
	_, rec, srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/sensors"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "orientation", "alpha": 90, "beta": 1, "gamma": -2}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "motion", "ax": 0.5, "az": 9.8, "t": 1234}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "reset"}))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	msgs := rec.snapshot()

	assert.Equal(t, "t/orientation", msgs[0].topic)
	var a orientation.Angles
	require.NoError(t, json.Unmarshal(msgs[0].payload, &a))
	assert.Equal(t, orientation.Angles{Alpha: 90, Beta: 1, Gamma: -2}, a)

	assert.Equal(t, "t/motion", msgs[1].topic)
	var smp imu.Sample
	require.NoError(t, json.Unmarshal(msgs[1].payload, &smp))
	assert.Equal(t, imu.Sample{Ax: 0.5, Az: 9.8, TimestampMs: 1234}, smp)

	assert.Equal(t, "t/reset", msgs[2].topic)
}
