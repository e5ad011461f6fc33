/*
Package hydro computes the resistive hydrodynamic wrench acting on a batch
of floating bodies.

Each environment owns a 6-DOF linear and quadratic damping vector ordered
surge, sway, heave, roll, pitch, yaw. With randomization enabled the vectors
are drawn once at construction and again whenever ResetCoefficients names
the environment:

	coeff[e][i] = base[i] + U(-1, 1) * fraction[i] * base[i]

Draws are not clamped, so a fraction above 1 can produce negative damping.

ComputeEffects rotates world velocities into the body frame, optionally
subtracts the ambient current and returns

	drag = -((D_lin + off_lin - (D_fwd + off_fwd)) + (D_quad + off_quad) * |v|) * scaling * v

Added-mass and Coriolis terms are not modelled and contribute zero.
*/
package hydro
