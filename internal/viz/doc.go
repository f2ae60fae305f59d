// Package viz draws a running particle engine in the terminal.
//
// [Model] is a Bubble Tea program that steps the engine once per tick and
// plots every particle on a braille [Canvas]. It only talks to the engine
// through Spawn, Step and Positions.
//
// # Key Bindings
//
//	Space - Spawn particles at the spawn point
//	+ / - - Change how many particles one spawn adds
//	P     - Pause/Resume simulation
//	R     - Reset to an empty engine
//	T     - Cycle color themes
//	Q/Esc - Quit
package viz
