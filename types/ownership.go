package types

// Transfer is the ownership-transfer mode of a parameter or return value.
type Transfer uint8

const (
	// TransferNone: the callee keeps ownership; the receiver must not free.
	TransferNone Transfer = iota
	// TransferContainer: the receiver frees the container, not its elements.
	TransferContainer
	// TransferEverything: the receiver frees the container and its elements.
	TransferEverything
)

func (t Transfer) String() string {
	switch t {
	case TransferContainer:
		return "container"
	case TransferEverything:
		return "everything"
	default:
		return "none"
	}
}

// ParseTransfer accepts "", "none", "container", "full" and "everything".
func ParseTransfer(s string) Transfer {
	switch s {
	case "container":
		return TransferContainer
	case "full", "everything":
		return TransferEverything
	default:
		return TransferNone
	}
}

// Elements returns the transfer applied to container elements.
func (t Transfer) Elements() Transfer {
	if t == TransferEverything {
		return TransferEverything
	}
	return TransferNone
}

// Direction is a parameter direction.
type Direction uint8

const (
	DirIn Direction = iota
	DirOut
	DirInOut
)

func (d Direction) String() string {
	switch d {
	case DirOut:
		return "out"
	case DirInOut:
		return "inout"
	default:
		return "in"
	}
}

// ParseDirection accepts "", "in", "out" and "inout".
func ParseDirection(s string) Direction {
	switch s {
	case "out":
		return DirOut
	case "inout":
		return DirInOut
	default:
		return DirIn
	}
}

// IsIn reports whether the host supplies a value for the parameter.
func (d Direction) IsIn() bool { return d != DirOut }

// IsOut reports whether the parameter produces a result value.
func (d Direction) IsOut() bool { return d != DirIn }

// Scope is the declared lifetime of a callback argument.
type Scope uint8

const (
	// ScopeCall: valid for the duration of the call.
	ScopeCall Scope = iota
	// ScopeAsync: invoked once, after which it is released.
	ScopeAsync
	// ScopeNotified: released when the native side calls the destroy notifier.
	ScopeNotified
	// ScopeForever: never released.
	ScopeForever
)

func (s Scope) String() string {
	switch s {
	case ScopeAsync:
		return "async"
	case ScopeNotified:
		return "notified"
	case ScopeForever:
		return "forever"
	default:
		return "call"
	}
}

// ParseScope accepts "", "call", "async", "notified" and "forever".
func ParseScope(s string) Scope {
	switch s {
	case "async":
		return ScopeAsync
	case "notified":
		return ScopeNotified
	case "forever":
		return ScopeForever
	default:
		return ScopeCall
	}
}

// ArrayLength is how an array's element count is determined.
type ArrayLength uint8

const (
	// LengthZeroTerminated: scan until a zero element.
	LengthZeroTerminated ArrayLength = iota
	// LengthFixed: the count is fixed by metadata.
	LengthFixed
	// LengthParam: the count travels in a sibling parameter.
	LengthParam
)

func (l ArrayLength) String() string {
	switch l {
	case LengthFixed:
		return "fixed"
	case LengthParam:
		return "param"
	default:
		return "zero-terminated"
	}
}
