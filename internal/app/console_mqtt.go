package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_radar/internal/config"
	"github.com/relabs-tech/inertial_radar/internal/estimator"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
)

// RunConsoleMQTT prints the tracker state and attitude feed to stdout.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	p := newConsolePrinter(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)

	if err := subscribe(client, cfg.TopicState, p.handleState); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicOrientation, p.handleOrientation); err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

// consolePrinter throttles each line kind to one per interval.
type consolePrinter struct {
	mu        sync.Mutex
	interval  time.Duration
	now       func() time.Time
	lastState time.Time
	lastPose  time.Time
	print     func(string)
}

func newConsolePrinter(interval time.Duration) *consolePrinter {
	return &consolePrinter{
		interval: interval,
		now:      time.Now,
		print:    func(s string) { fmt.Println(s) },
	}
}

func (p *consolePrinter) due(last *time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !last.IsZero() && now.Sub(*last) < p.interval {
		return false
	}
	*last = now
	return true
}

func (p *consolePrinter) handleState(payload []byte) {
	var snap estimator.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("console: state unmarshal error: %v", err)
		return
	}
	if !p.due(&p.lastState) {
		return
	}
	p.print(formatState(snap))
}

func (p *consolePrinter) handleOrientation(payload []byte) {
	var a orientation.Angles
	if err := json.Unmarshal(payload, &a); err != nil {
		log.Printf("console: orientation unmarshal error: %v", err)
		return
	}
	if !p.due(&p.lastPose) {
		return
	}
	p.print(fmt.Sprintf("[ORNT] ALPHA=%6.1f  BETA=%6.1f  GAMMA=%6.1f", a.Alpha, a.Beta, a.Gamma))
}

func formatState(s estimator.Snapshot) string {
	if s.Mode == estimator.Calibrating {
		return fmt.Sprintf("[CALB] %3.0f%%  bias x=%+.3f y=%+.3f z=%+.3f",
			s.CalibrationProgress*100, s.Bias.X, s.Bias.Y, s.Bias.Z)
	}
	still := ""
	if s.Still {
		still = " STILL"
	}
	return fmt.Sprintf("[POS ] x=%+7.2f y=%+7.2f z=%+7.2f m | v=%5.2f m/s | hdg=%5.1f | ok=%d drop=%d zupt=%d%s",
		s.Position.X, s.Position.Y, s.Position.Z,
		s.Velocity.Norm(),
		s.Attitude.Alpha,
		s.Stats.Accepted, s.Stats.Dropped, s.Stats.ZUPTs,
		still,
	)
}
