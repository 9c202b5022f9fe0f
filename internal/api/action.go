package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned for action names outside the closed set.
	ErrUnknownAction = errors.New("Unknown API-Action") //nolint:staticcheck // returned verbatim to the web client
	// ErrNotImplemented marks reserved actions.
	ErrNotImplemented = errors.New("not implemented")
	// ErrHistoryDisabled is returned by loadHistory when no store is configured.
	ErrHistoryDisabled = errors.New("status history is disabled")
)

// Action is a recognized API action.
type Action int

const (
	ActionStartCapture Action = iota
	ActionStopCapture
	ActionLoadConfig
	ActionSaveConfig
	ActionLoadStatus
	ActionLoadHistory
)

var actionNames = map[Action]string{
	ActionStartCapture: "startCapture",
	ActionStopCapture:  "stopCapture",
	ActionLoadConfig:   "loadConfig",
	ActionSaveConfig:   "saveConfig",
	ActionLoadStatus:   "loadStatus",
	ActionLoadHistory:  "loadHistory",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction resolves an action name. Matching is exact and case-sensitive.
func ParseAction(name string) (Action, error) {
	if a, ok := actionsByName[name]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Actions returns every recognized action name.
func Actions() []string {
	names := make([]string, 0, len(actionNames))
	for a := ActionStartCapture; a <= ActionLoadHistory; a++ {
		names = append(names, a.String())
	}
	return names
}
