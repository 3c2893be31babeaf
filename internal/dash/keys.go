package dash

// Action is an operator intent. The key handler maps every input
// token to exactly one of these; anything unmapped is ActionUnknown.
type Action int

const (
	ActionUnknown Action = iota
	ActionQuit
	ActionUp
	ActionDown
	ActionToggleGroup
	ActionExpandAll
	ActionCollapseAll
	ActionRefresh
	ActionPause
	ActionSend
	ActionQueryContext
	ActionFilterBlocked
	ActionFilterAttention
	ActionFilterClear
	ActionDismissAlert
)

// keymap is the complete key surface. Tokens are matched whole, never
// by prefix: callers buffer partial escape sequences before lookup.
// Most actions have a mnemonic letter plus a numeric shortcut.
var keymap = map[string]Action{
	"q":      ActionQuit,
	"esc":    ActionQuit,
	"ctrl+c": ActionQuit,

	"up":     ActionUp,
	"k":      ActionUp,
	"\x1b[A": ActionUp,
	"down":   ActionDown,
	"j":      ActionDown,
	"\x1b[B": ActionDown,

	"enter": ActionToggleGroup,
	"tab":   ActionToggleGroup,
	"o":     ActionToggleGroup,

	"E": ActionExpandAll,
	"C": ActionCollapseAll,

	"r": ActionRefresh,
	"5": ActionRefresh,
	"p": ActionPause,

	"s": ActionSend,
	"1": ActionSend,
	"c": ActionQueryContext,
	"2": ActionQueryContext,

	"b": ActionFilterBlocked,
	"3": ActionFilterBlocked,
	"a": ActionFilterAttention,
	"4": ActionFilterAttention,
	"f": ActionFilterClear,
	"0": ActionFilterClear,

	"x": ActionDismissAlert,
}

// Handle maps one input token (a single character, a key name, or a
// fully-matched escape sequence) to its action. Total and
// deterministic: unmapped input is ActionUnknown, never an error.
func Handle(token string) Action {
	if a, ok := keymap[token]; ok {
		return a
	}
	return ActionUnknown
}
