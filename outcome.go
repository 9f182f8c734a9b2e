package sidecarssr

// State is the terminal state of one dispatch.
type State int

const (
	// StateDisabled: SSR is off or no handler is configured; nothing was called.
	StateDisabled State = iota
	// StateSuccess: the function rendered the page.
	StateSuccess
	// StateFailedSuppressed: the call failed and the caller falls back to
	// client-side rendering.
	StateFailedSuppressed
	// StateFailedRaised: the call failed and debug mode surfaces the error.
	StateFailedRaised
	// StateMisconfigured: the handler does not resolve to a valid function.
	StateMisconfigured
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateSuccess:
		return "success"
	case StateFailedSuppressed:
		return "failed_suppressed"
	case StateFailedRaised:
		return "failed_raised"
	case StateMisconfigured:
		return "misconfigured"
	default:
		return "unknown"
	}
}

// Outcome is the result of a dispatch attempt. Response is set only on
// success; Err is set on every failure state, suppressed ones included.
type Outcome struct {
	State    State
	Response *Response
	Err      error
}

func disabled() Outcome {
	return Outcome{State: StateDisabled}
}

func succeeded(resp *Response) Outcome {
	return Outcome{State: StateSuccess, Response: resp}
}

// failed settles a remote failure according to the debug flag.
func failed(err error, debug bool) Outcome {
	if debug {
		return Outcome{State: StateFailedRaised, Err: err}
	}
	return Outcome{State: StateFailedSuppressed, Err: err}
}

func misconfigured(err error) Outcome {
	return Outcome{State: StateMisconfigured, Err: err}
}

// Result maps the outcome onto the Gateway contract: a response, nothing, or
// an error the caller must see.
func (o Outcome) Result() (*Response, error) {
	switch o.State {
	case StateSuccess:
		return o.Response, nil
	case StateFailedRaised, StateMisconfigured:
		return nil, o.Err
	default:
		return nil, nil
	}
}
