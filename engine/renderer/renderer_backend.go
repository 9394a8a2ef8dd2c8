package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-waves/common"
)

// BackendType identifies the submission backend behind the frame ring.
type BackendType int

const (
	// BackendTypeSim selects the headless simulated device.
	BackendTypeSim BackendType = iota

	// BackendTypeWGPU selects the WebGPU backend (cogentcore/webgpu).
	BackendTypeWGPU

	// BackendTypeHAL selects the gogpu hardware abstraction layer, tracking queue submission indices.
	BackendTypeHAL
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeSim:
		return "sim"
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHAL:
		return "hal"
	default:
		return fmt.Sprintf("BackendType(%d)", int(t))
	}
}

// ParseBackendType maps a configuration name to a BackendType.
//
// Parameters:
//   - name: "sim", "wgpu" or "hal" (case-insensitive)
//
// Returns:
//   - BackendType: the parsed type
//   - error: a configuration error for unknown names
func ParseBackendType(name string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sim":
		return BackendTypeSim, nil
	case "wgpu":
		return BackendTypeWGPU, nil
	case "hal":
		return BackendTypeHAL, nil
	default:
		return 0, fmt.Errorf("renderer: %w: unknown backend %q", common.ErrConfiguration, name)
	}
}
