package orientation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/inertial_radar/internal/spatial"
)

// Angles is the device attitude in device-orientation terms:
// alpha = heading, beta = front-back tilt, gamma = left-right tilt.
// On the wire (MQTT, websocket) the values are degrees; inside the
// estimator they are radians.
type Angles struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Source is anything that can provide attitude over time, in degrees.
type Source interface {
	Next() (Angles, error)
}

// Radians converts degree angles to radians.
func (a Angles) Radians() Angles {
	return Angles{
		Alpha: a.Alpha * math.Pi / 180.0,
		Beta:  a.Beta * math.Pi / 180.0,
		Gamma: a.Gamma * math.Pi / 180.0,
	}
}

// Degrees converts radian angles to degrees.
func (a Angles) Degrees() Angles {
	return Angles{
		Alpha: a.Alpha * 180.0 / math.Pi,
		Beta:  a.Beta * 180.0 / math.Pi,
		Gamma: a.Gamma * 180.0 / math.Pi,
	}
}

// Matrix returns the device-to-world rotation R = Rz(alpha)·Rx(beta)·Ry(gamma)
// (intrinsic Z-X'-Y''). Angles are in radians. The world frame is East-North-Up.
func Matrix(a Angles) *mat.Dense {
	sa, ca := math.Sincos(a.Alpha)
	sb, cb := math.Sincos(a.Beta)
	sg, cg := math.Sincos(a.Gamma)

	return mat.NewDense(3, 3, []float64{
		ca*cg - sa*sb*sg, -sa * cb, ca*sg + sa*sb*cg,
		sa*cg + ca*sb*sg, ca * cb, sa*sg - ca*sb*cg,
		-cb * sg, sb, cb * cg,
	})
}

// Rotate maps a device-frame vector into the world frame for the given
// attitude (radians). Pure function of its inputs.
func Rotate(v spatial.Vector3, a Angles) spatial.Vector3 {
	var w mat.VecDense
	w.MulVec(Matrix(a), mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return spatial.Vector3{X: w.AtVec(0), Y: w.AtVec(1), Z: w.AtVec(2)}
}

// FromGravity estimates beta and gamma (degrees) from an accelerometer that
// is at rest, so that the measured vector is gravity alone. Units do not
// matter, only ratios. Alpha is left at 0: heading needs a magnetometer.
//
// With R as in Matrix, gravity seen by the device is
//
//	g·(-cos β·sin γ, sin β, cos β·cos γ)
//
// hence
//
//	beta  = atan2(ay, sqrt(ax² + az²))
//	gamma = atan2(-ax, az)
func FromGravity(ax, ay, az float64) Angles {
	betaRad := math.Atan2(ay, math.Sqrt(ax*ax+az*az))
	gammaRad := math.Atan2(-ax, az)

	return Angles{
		Alpha: 0, // no heading without a magnetometer
		Beta:  betaRad * 180.0 / math.Pi,
		Gamma: gammaRad * 180.0 / math.Pi,
	}
}
