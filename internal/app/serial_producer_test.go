package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
	"github.com/relabs-tech/inertial_radar/internal/sensors"
)

func nmeaLine(body string) string {
	return fmt.Sprintf("$%s*%s\r\n", body, nmea.Checksum(body))
}

func TestForwardSentences(t *testing.T) {
	t.Parallel()

	feed := nmeaLine("PDRIO,10,0,-5") +
		"garbage\r\n" +
		nmeaLine("PDRIM,0.1,0,9.8,20") +
		nmeaLine("PDRIM,0.2,0,9.8,40")

	type published struct {
		topic string
		v     any
	}
	var got []published
	err := forwardSentences(context.Background(), sensors.NewSentenceReader(strings.NewReader(feed)),
		func(topic string, v any) error {
			got = append(got, published{topic, v})
			return nil
		}, "m", "o")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, published{"o", orientation.Angles{Alpha: 10, Gamma: -5}}, got[0])
	assert.Equal(t, published{"m", imu.Sample{Ax: 0.1, Az: 9.8, TimestampMs: 20}}, got[1])
	assert.Equal(t, "m", got[2].topic)
}
