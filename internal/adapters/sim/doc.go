// Package sim provides software stand-ins for the dispenser hardware so the
// daemon can run on a development machine.
package sim
