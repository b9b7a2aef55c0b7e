package rtsp

import "fmt"

// Method is an RTSP request method this server understands.
type Method string

const (
	MethodOptions   Method = "OPTIONS"
	MethodDescribe  Method = "DESCRIBE"
	MethodSetup     Method = "SETUP"
	MethodPlay      Method = "PLAY"
	MethodPause     Method = "PAUSE"
	MethodTeardown  Method = "TEARDOWN"
)

// StatusCode is an RTSP response status this server ever emits.
type StatusCode int

const (
	StatusOK                   StatusCode = 200
	StatusBadRequest           StatusCode = 400
	StatusSessionNotFound      StatusCode = 454
	StatusUnsupportedTransport StatusCode = 461
	StatusInternalServerError  StatusCode = 500
	StatusNotImplemented       StatusCode = 501
)

func (c StatusCode) Reason() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusSessionNotFound:
		return "Session Not Found"
	case StatusUnsupportedTransport:
		return "Unsupported Transport"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return "Not Implemented"
	}
}

// ErrSessionMismatch is returned when a request's Session header does not
// match the session's assigned id (spec.md §4.4: "Session mismatch on
// non-initial request → 454").
var ErrSessionMismatch = fmt.Errorf("rtsp: session mismatch")

// transition applies method to the session's current state, returning the
// new state and the status to report. It never mutates s; callers apply
// the result themselves so the table lock's "only append/remove/snapshot/
// update scalar state" discipline (spec.md §5) stays visible at the call
// site.
func transition(current State, method Method) (next State, status StatusCode, ok bool) {
	switch method {
	case MethodOptions:
		return current, StatusOK, true
	case MethodDescribe:
		return current, StatusOK, true
	case MethodSetup:
		switch current {
		case StateInit, StateReady:
			return StateReady, StatusOK, true
		default:
			return current, StatusOK, true // state unchanged; the server answers 400 to a re-bind outside READY
		}
	case MethodPlay:
		switch current {
		case StateReady, StatePaused, StatePlaying:
			return StatePlaying, StatusOK, true
		default:
			return current, StatusBadRequest, false
		}
	case MethodPause:
		// spec.md's transition table sends PLAYING--PAUSE-->READY, not a
		// distinct PAUSED state; StatePaused stays in the state set for
		// the data model's invariant but this table never enters it.
		if current == StatePlaying {
			return StateReady, StatusOK, true
		}
		return current, StatusBadRequest, false
	case MethodTeardown:
		return current, StatusOK, true // caller destroys the session
	default:
		return current, StatusNotImplemented, false
	}
}
