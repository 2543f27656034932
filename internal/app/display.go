package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_radar/internal/config"
	"github.com/relabs-tech/inertial_radar/internal/estimator"
)

const (
	displayWidth  = 128
	displayHeight = 64

	// radar pane: right half of the panel
	radarCenterX = 96
	radarCenterY = 32
	radarRadius  = 30
)

// displayData holds the latest state received for the panel.
type displayData struct {
	mu   sync.RWMutex
	snap estimator.Snapshot
	have bool
}

func (d *displayData) update(payload []byte) {
	var snap estimator.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("display: state unmarshal error: %v", err)
		return
	}
	d.mu.Lock()
	d.snap = snap
	d.have = true
	d.mu.Unlock()
}

func (d *displayData) get() (estimator.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap, d.have
}

// addrBus pins every transaction to addr. The ssd1306 driver always talks
// to 0x3C; panels strapped to 0x3D need the rewrite.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// RunDisplay draws the tracker state on an SSD1306 OLED: readout on the
// left, top-down trail on the right.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(addrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), splashImage(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribe(client, cfg.TopicState, data.update); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, have := data.get()
			img := renderRadar(snap, have, cfg.DisplayRangeMeters)
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: error updating: %v", err)
			}
		}
	}
}

func newPanel() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func splashImage() *image1bit.VerticalLSB {
	img, drawer := newPanel()
	drawLine(drawer, 15, 26, "Inertial Radar")
	drawLine(drawer, 15, 43, "Keep device")
	drawLine(drawer, 40, 56, "still")
	return img
}

// renderRadar draws the readout and the trail. rangeM is the distance in
// meters shown at the edge of the radar circle.
func renderRadar(snap estimator.Snapshot, have bool, rangeM float64) *image1bit.VerticalLSB {
	img, drawer := newPanel()

	if !have {
		drawLine(drawer, 0, 26, "Radar")
		drawLine(drawer, 0, 39, "Wait...")
		return img
	}

	if snap.Mode == estimator.Calibrating {
		drawLine(drawer, 0, 13, "CALIB")
		drawLine(drawer, 0, 26, fmt.Sprintf("%3.0f%%", snap.CalibrationProgress*100))
	} else {
		drawLine(drawer, 0, 13, fmt.Sprintf("X%+5.1f", snap.Position.X))
		drawLine(drawer, 0, 26, fmt.Sprintf("Y%+5.1f", snap.Position.Y))
		drawLine(drawer, 0, 39, fmt.Sprintf("Z%+5.1f", snap.Position.Z))
		if snap.Still {
			drawLine(drawer, 0, 52, "STILL")
		}
	}

	drawRing(img)
	img.SetBit(radarCenterX, radarCenterY, image1bit.On)

	for _, p := range snap.Trail {
		if px, py, ok := radarPixel(p.X, p.Y, rangeM); ok {
			img.SetBit(px, py, image1bit.On)
		}
	}

	// current position as a small cross
	if px, py, ok := radarPixel(snap.Position.X, snap.Position.Y, rangeM); ok {
		for d := -1; d <= 1; d++ {
			img.SetBit(px+d, py, image1bit.On)
			img.SetBit(px, py+d, image1bit.On)
		}
	}

	return img
}

// radarPixel maps a world position (x east, y north) to the radar pane.
// Points beyond rangeM are not drawn.
func radarPixel(x, y, rangeM float64) (int, int, bool) {
	if rangeM <= 0 || math.Hypot(x, y) > rangeM {
		return 0, 0, false
	}
	scale := radarRadius / rangeM
	px := radarCenterX + int(math.Round(x*scale))
	py := radarCenterY - int(math.Round(y*scale))
	return px, py, true
}

func drawRing(img *image1bit.VerticalLSB) {
	for deg := 0; deg < 360; deg += 3 {
		rad := float64(deg) * math.Pi / 180
		x := radarCenterX + int(math.Round(radarRadius*math.Cos(rad)))
		y := radarCenterY + int(math.Round(radarRadius*math.Sin(rad)))
		img.SetBit(x, y, image1bit.On)
	}
}
