package app

import (
	"context"
	"errors"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_radar/internal/config"
	"github.com/relabs-tech/inertial_radar/internal/sensors"
)

// RunSerialProducer reads $PDRIM/$PDRIO sentences from a sensor board on a
// serial port and publishes them to the motion and orientation topics.
func RunSerialProducer(ctx context.Context) error {
	log.Println("starting inertial-radar serial producer (UART → MQTT)")

	cfg := config.Get()
	if cfg.SerialPort == "" {
		return errors.New("SERIAL_PORT is required for the serial producer")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	port, err := sensors.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("serial port opened on %s at %d baud", cfg.SerialPort, cfg.SerialBaudRate)

	// Closing the port unblocks the pending read on shutdown.
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return forwardSentences(ctx, sensors.NewSentenceReader(port), func(topic string, v any) error {
		retained := topic == cfg.TopicOrientation
		return publishJSON(client, topic, retained, v)
	}, cfg.TopicMotion, cfg.TopicOrientation)
}

// forwardSentences pumps sentences to publish until the reader ends.
func forwardSentences(ctx context.Context, r *sensors.SentenceReader, publish func(topic string, v any) error, motionTopic, orientationTopic string) error {
	var motion, attitude uint64
	for {
		s, err := r.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				log.WithFields(log.Fields{"motion": motion, "orientation": attitude}).Info("serial producer: feed ended")
				return nil
			}
			return err
		}

		switch m := s.(type) {
		case sensors.MotionSentence:
			err = publish(motionTopic, m.Sample)
			motion++
		case sensors.OrientationSentence:
			err = publish(orientationTopic, m.Angles)
			attitude++
		}
		if err != nil {
			log.Printf("serial producer: %v", err)
		}
	}
}
