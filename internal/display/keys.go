package display

// KeyEscape is the key code reported for Esc.
const KeyEscape = 27

// Action is what the frame loop should do after a key poll.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionToggleEyes
)

// ActionFor maps a WaitKey result to an Action. Only the low byte of the key
// code is significant.
func ActionFor(key int) Action {
	if key < 0 {
		return ActionNone
	}
	switch key & 0xFF {
	case KeyEscape, 'q':
		return ActionQuit
	case 'e':
		return ActionToggleEyes
	}
	return ActionNone
}
