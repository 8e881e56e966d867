package executor

import (
	"fmt"

	"github.com/astra-ai/kernel/pkg/bridge"
)

// validateAction checks an action's shape against spec.md §4.11 step 4's
// rules (coord bounds, drag has start+end, key has non-empty keys, type has
// text, wait has ms) before it is ever sent to the bridge.
func validateAction(a bridge.Action, obsWidth, obsHeight int) error {
	switch a.Type {
	case "move_mouse", "click", "double_click":
		return requireInBounds(a.X, a.Y, obsWidth, obsHeight)
	case "drag":
		if err := requireInBounds(a.X, a.Y, obsWidth, obsHeight); err != nil {
			return err
		}
		return requireInBounds(a.EndX, a.EndY, obsWidth, obsHeight)
	case "type":
		if a.Text == "" {
			return fmt.Errorf("type action requires non-empty text")
		}
	case "key":
		if len(a.Keys) == 0 {
			return fmt.Errorf("key action requires at least one key")
		}
	case "scroll":
		if a.ScrollDX == 0 && a.ScrollDY == 0 {
			return fmt.Errorf("scroll action requires a non-zero delta")
		}
	case "wait":
		if a.MS <= 0 {
			return fmt.Errorf("wait action requires ms > 0")
		}
	case "done":
		// no fields required
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

func requireInBounds(x, y, width, height int) error {
	if width <= 0 || height <= 0 {
		return nil // no known bounds yet (first observation failed) — skip the check
	}
	if x < 0 || y < 0 || x > width || y > height {
		return fmt.Errorf("coordinates (%d,%d) out of bounds (%dx%d)", x, y, width, height)
	}
	return nil
}
