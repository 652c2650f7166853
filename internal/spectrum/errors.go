// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"

	"specviz/internal/fft"
)

// ErrInvalidConfiguration is returned by setters and parsers given parameters
// the engine cannot work with. It is the same value as
// fft.ErrInvalidConfiguration so a single errors.Is check covers both layers.
var ErrInvalidConfiguration = fft.ErrInvalidConfiguration

// LogicError reports an enum value outside the closed set the engine knows.
// It indicates a programming defect and is raised with panic, never returned.
type LogicError struct {
	Op    string // the switch that was hit, e.g. "scale"
	Value int
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("spectrum: %s: unknown value %d", e.Op, e.Value)
}
