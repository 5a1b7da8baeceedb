package attempt

// Key identifies a keyboard shortcut understood by the attempt.
type Key string

const (
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyEnter      Key = "Enter"
	KeyF          Key = "f"
)

// HandleKey maps keyboard shortcuts onto attempt commands: left arrow
// retreats, right arrow and enter advance, ctrl/cmd+F toggles the flag.
// All shortcuts are suppressed while focus sits in a text input, and the
// strict-mode policy (no retreat, no flagging) applies through the
// underlying commands.
func (c *Controller) HandleKey(key Key, withModifier, inTextInput bool) error {
	if inTextInput {
		return nil
	}
	switch key {
	case KeyArrowLeft:
		return c.Retreat()
	case KeyArrowRight, KeyEnter:
		return c.Advance()
	case KeyF, Key("F"):
		if withModifier {
			return c.ToggleFlag()
		}
	}
	return nil
}
