package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_radar/internal/config"
	"github.com/relabs-tech/inertial_radar/internal/estimator"
	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
)

// sensorMessage is what the browser page sends on /ws/sensors. Angles are
// degrees, acceleration includes gravity, t is milliseconds.
type sensorMessage struct {
	Type  string  `json:"type"` // orientation, motion, reset
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
	Ax    float64 `json:"ax"`
	Ay    float64 `json:"ay"`
	Az    float64 `json:"az"`
	T     int64   `json:"t"`
}

type sensorTopics struct {
	orientation string
	motion      string
	reset       string
}

type webServer struct {
	mu        sync.RWMutex
	lastState []byte
	lastSnap  estimator.Snapshot
	haveState bool

	hub     *hub
	topics  sensorTopics
	forward func(topic string, payload []byte) error
}

func newWebServer(topics sensorTopics, forward func(topic string, payload []byte) error) *webServer {
	return &webServer{hub: newHub(), topics: topics, forward: forward}
}

// updateState stores a snapshot published by the tracker and pushes it to
// the websocket clients.
func (s *webServer) updateState(payload []byte) error {
	var snap estimator.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("state unmarshal: %w", err)
	}

	s.mu.Lock()
	s.lastState = payload
	s.lastSnap = snap
	s.haveState = true
	s.mu.Unlock()

	s.hub.broadcast(payload)
	return nil
}

func (s *webServer) routes(staticDir string) http.Handler {
	mux := http.NewServeMux()

	// JSON API endpoint: latest snapshot
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		if !s.haveState {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.lastState)
	})

	mux.HandleFunc("/api/position", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		if !s.haveState {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.lastSnap.Position); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/api/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.forward(s.topics.reset, []byte("{}")); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	mux.Handle("/ws/state", s.hub)
	mux.HandleFunc("/ws/sensors", s.handleSensors)

	// Static files (the radar page) as the root
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// handleSensors accepts a phone browser streaming its device-orientation
// and device-motion events and forwards them to the sensor topics.
func (s *webServer) handleSensors(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: sensors websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("web: sensor feed connected from %s", r.RemoteAddr)

	for {
		var msg sensorMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("web: sensor feed closed: %v", err)
			return
		}
		if err := s.forwardSensor(msg); err != nil {
			log.Printf("web: %v", err)
		}
	}
}

func (s *webServer) forwardSensor(msg sensorMessage) error {
	var (
		topic string
		v     any
	)
	switch msg.Type {
	case "orientation":
		topic = s.topics.orientation
		v = orientation.Angles{Alpha: msg.Alpha, Beta: msg.Beta, Gamma: msg.Gamma}
	case "motion":
		topic = s.topics.motion
		v = imu.Sample{Ax: msg.Ax, Ay: msg.Ay, Az: msg.Az, TimestampMs: msg.T}
	case "reset":
		topic = s.topics.reset
		v = struct{}{}
	default:
		return fmt.Errorf("unknown sensor message type %q", msg.Type)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	return s.forward(topic, payload)
}

// RunWeb serves the radar page, the state API and the browser sensor feed.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	srv := newWebServer(
		sensorTopics{orientation: cfg.TopicOrientation, motion: cfg.TopicMotion, reset: cfg.TopicReset},
		func(topic string, payload []byte) error {
			return publishRaw(client, topic, false, payload)
		},
	)

	if err := subscribe(client, cfg.TopicState, func(p []byte) {
		if err := srv.updateState(p); err != nil {
			log.Printf("web: %v", err)
		}
	}); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           srv.routes(cfg.WebStaticDir),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
