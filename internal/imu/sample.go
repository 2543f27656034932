package imu

// StandardGravity is one g in m/s².
const StandardGravity = 9.80665

// Sample is one accelerometer reading in the device frame, gravity
// included, in m/s². TimestampMs must increase monotonically within a
// session. Axes missing from a JSON payload decode as zero.
type Sample struct {
	Ax          float64 `json:"ax"`
	Ay          float64 `json:"ay"`
	Az          float64 `json:"az"`
	TimestampMs int64   `json:"t"`
}

// Source is anything that can provide motion samples over time.
type Source interface {
	Next() (Sample, error)
}

// accelLSBPerG is the MPU9250 accelerometer sensitivity for each
// ACCEL_FS_SEL setting: 0=±2g, 1=±4g, 2=±8g, 3=±16g.
var accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// CountsToMS2 converts a raw MPU9250 accelerometer count to m/s² for the
// given range selector. Out-of-range selectors fall back to ±2g.
func CountsToMS2(raw int16, rangeSel byte) float64 {
	if int(rangeSel) >= len(accelLSBPerG) {
		rangeSel = 0
	}
	return float64(raw) / accelLSBPerG[rangeSel] * StandardGravity
}
