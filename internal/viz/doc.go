// Package viz renders a running VecEnv in the terminal.
//
// [Model] is a Bubble Tea program that steps the environment on a timer,
// draws one environment on a Braille [Canvas] (platform, heading, trail and
// goal) and plots the batch mean reward with asciigraph.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset every environment
//	Tab   - Follow the next environment
//	?     - Show help
//	Q     - Quit
package viz
