package lifecycle

// Command is a manual, actor-triggered operation on an outing.
type Command string

const (
	CommandRegister   Command = "register"
	CommandUnregister Command = "unregister"
	CommandPublish    Command = "publish"
	CommandCancel     Command = "cancel"
	CommandEdit       Command = "edit"
	CommandDelete     Command = "delete"
)

// Rule is one row of the command table: the states a command may be issued
// from and the state it leaves the outing in. An empty Target keeps the
// current state.
type Rule struct {
	Command Command
	From    []State
	Target  State
}

// Rules is the single source of truth for manual transitions.
var Rules = []Rule{
	{Command: CommandRegister, From: []State{StateOpen}},
	{Command: CommandUnregister, From: []State{StateOpen}},
	{Command: CommandPublish, From: []State{StateCreated}, Target: StateOpen},
	{Command: CommandCancel, From: []State{StateCreated, StateOpen, StateClosed, StateInProgress}, Target: StateCancelled},
	{Command: CommandEdit, From: []State{StateCreated, StateOpen, StateClosed}},
	{Command: CommandDelete, From: []State{StateCreated}},
}

func ruleFor(cmd Command) (Rule, bool) {
	for _, r := range Rules {
		if r.Command == cmd {
			return r, true
		}
	}
	return Rule{}, false
}

// Allows reports whether cmd may be issued while the outing is in state s.
func Allows(cmd Command, s State) bool {
	r, ok := ruleFor(cmd)
	if !ok {
		return false
	}
	for _, from := range r.From {
		if from == s {
			return true
		}
	}
	return false
}

// Target returns the state s moves to when cmd succeeds.
// The second result is false when cmd is not allowed from s.
func Target(cmd Command, s State) (State, bool) {
	if !Allows(cmd, s) {
		return s, false
	}
	r, _ := ruleFor(cmd)
	if r.Target == "" {
		return s, true
	}
	return r.Target, true
}
