package rtsp

import "testing"

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		from    State
		method  Method
		want    State
		handled bool
	}{
		{"OPTIONS in INIT", StateInit, MethodOptions, StateInit, true},
		{"DESCRIBE in INIT", StateInit, MethodDescribe, StateInit, true},
		{"SETUP INIT->READY", StateInit, MethodSetup, StateReady, true},
		{"SETUP READY->READY", StateReady, MethodSetup, StateReady, true},
		{"PLAY READY->PLAYING", StateReady, MethodPlay, StatePlaying, true},
		{"PLAY PLAYING->PLAYING idempotent", StatePlaying, MethodPlay, StatePlaying, true},
		{"PAUSE PLAYING->READY", StatePlaying, MethodPause, StateReady, true},
		{"PAUSE from INIT rejected", StateInit, MethodPause, StateInit, false},
		{"PLAY from INIT rejected", StateInit, MethodPlay, StateInit, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			next, _, handled := transition(c.from, c.method)
			if next != c.want {
				t.Errorf("next state = %v, want %v", next, c.want)
			}
			if handled != c.handled {
				t.Errorf("handled = %v, want %v", handled, c.handled)
			}
		})
	}
}

func TestTransitionUnknownMethodIsNotImplemented(t *testing.T) {
	_, status, handled := transition(StateInit, Method("FOO"))
	if handled {
		t.Fatal("unknown method should not be handled")
	}
	if status != StatusNotImplemented {
		t.Fatalf("status = %v, want 501", status)
	}
}

func TestTransitionNeverLeavesValidStateSet(t *testing.T) {
	// I6: session state never leaves {INIT, READY, PLAYING, PAUSED}.
	valid := map[State]bool{StateInit: true, StateReady: true, StatePlaying: true, StatePaused: true}
	methods := []Method{MethodOptions, MethodDescribe, MethodSetup, MethodPlay, MethodPause, MethodTeardown}
	for from := range valid {
		for _, m := range methods {
			next, _, _ := transition(from, m)
			if !valid[next] {
				t.Errorf("transition(%v, %v) = %v, outside valid state set", from, m, next)
			}
		}
	}
}
