package sensors

import (
	"bufio"
	"errors"
	"io"
	"math"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/inertial_radar/internal/imu"
	"github.com/relabs-tech/inertial_radar/internal/orientation"
)

// Proprietary sentence types emitted by the serial sensor board:
//
//	$PDRIM,<ax>,<ay>,<az>,<t_ms>*CS      acceleration incl. gravity, m/s²
//	$PDRIO,<alpha>,<beta>,<gamma>*CS     attitude, degrees
//
// Empty fields decode as zero.
const (
	TypeMotion      = "DRIM"
	TypeOrientation = "DRIO"
)

// MotionSentence carries one motion sample.
type MotionSentence struct {
	nmea.BaseSentence
	Sample imu.Sample
}

// OrientationSentence carries one attitude reading in degrees.
type OrientationSentence struct {
	nmea.BaseSentence
	Angles orientation.Angles
}

var sentenceParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeMotion:      parseMotion,
		TypeOrientation: parseOrientation,
	},
}

// finiteFloat64 is p.Float64 that also rejects NaN and ±Inf, which
// strconv accepts.
func finiteFloat64(p *nmea.Parser, i int, context string) float64 {
	v := p.Float64(i, context)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.SetErr(context, p.Fields[i])
		return 0
	}
	return v
}

func parseMotion(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := MotionSentence{
		BaseSentence: s,
		Sample: imu.Sample{
			Ax:          finiteFloat64(p, 0, "ax"),
			Ay:          finiteFloat64(p, 1, "ay"),
			Az:          finiteFloat64(p, 2, "az"),
			TimestampMs: p.Int64(3, "timestamp"),
		},
	}
	return m, p.Err()
}

func parseOrientation(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	o := OrientationSentence{
		BaseSentence: s,
		Angles: orientation.Angles{
			Alpha: finiteFloat64(p, 0, "alpha"),
			Beta:  finiteFloat64(p, 1, "beta"),
			Gamma: finiteFloat64(p, 2, "gamma"),
		},
	}
	return o, p.Err()
}

// ParseSentence parses one line. Standard NMEA sentences (a GPS sharing
// the line) parse too; callers pick what they need by type.
func ParseSentence(line string) (nmea.Sentence, error) {
	return sentenceParser.Parse(line)
}

// SentenceReader yields motion and orientation sentences from a line
// stream, skipping noise, partial lines and sentence types it does not use.
type SentenceReader struct {
	r *bufio.Reader
}

func NewSentenceReader(r io.Reader) *SentenceReader {
	return &SentenceReader{r: bufio.NewReader(r)}
}

// Next returns a MotionSentence or an OrientationSentence. It returns
// io.EOF once the underlying reader is exhausted.
func (sr *SentenceReader) Next() (nmea.Sentence, error) {
	for {
		line, err := sr.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, perr := ParseSentence(line)
		if perr != nil {
			// noisy line or partial sentence
			continue
		}

		switch sentence.(type) {
		case MotionSentence, OrientationSentence:
			return sentence, nil
		}
	}
}
