package core

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// ErrDegenerateQuaternion is returned when a zero quaternion is used as a rotation.
var ErrDegenerateQuaternion = errors.New("usvsim: zero-norm orientation quaternion")

// WrapToPi maps a to the shortest signed angle in (-π, π].
func WrapToPi(a float64) float64 {
	w := math.Atan2(math.Sin(a), math.Cos(a))
	if w <= -math.Pi {
		return math.Pi
	}
	return w
}

// HeadingError is the shortest signed rotation from current to target.
func HeadingError(target, current float64) float64 {
	return WrapToPi(target - current)
}

// YawQuaternion embeds a planar heading as a (w, x, y, z) rotation about the
// vertical axis.
func YawQuaternion(theta float64) [4]float64 {
	s, c := math.Sincos(theta * 0.5)
	return [4]float64{c, 0, 0, s}
}

// Yaw extracts the heading of a (w, x, y, z) quaternion.
func Yaw(q [4]float64) float64 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	sinyCosp := 2 * (w*z + x*y)
	cosyCosp := 1 - 2*(y*y+z*z)
	return math.Atan2(sinyCosp, cosyCosp)
}

// ToBody rotates a world-frame vector into the body frame of q, i.e. applies
// the inverse of the rotation q represents. q need not be unit length.
func ToBody(q [4]float64, v [3]float64) ([3]float64, error) {
	n := toQuat(q)
	return rotate(quat.Conj(n), n, v)
}

// ToWorld rotates a body-frame vector into the world frame.
func ToWorld(q [4]float64, v [3]float64) ([3]float64, error) {
	n := toQuat(q)
	return rotate(n, quat.Conj(n), v)
}

func rotate(left, right quat.Number, v [3]float64) ([3]float64, error) {
	norm := quat.Abs(left)
	if norm == 0 || math.IsNaN(norm) {
		return [3]float64{}, ErrDegenerateQuaternion
	}
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(left, p), right)
	n2 := norm * norm
	return [3]float64{r.Imag / n2, r.Jmag / n2, r.Kmag / n2}, nil
}

func toQuat(q [4]float64) quat.Number {
	return quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}
}
