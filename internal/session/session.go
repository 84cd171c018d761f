package session

import (
	"sort"
	"strings"
)

// State is the runtime state of a session container as reported by the runtime.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// DefaultLabel is shown for the container named exactly after the prefix.
const DefaultLabel = "default"

// VolumePlaceholder is rendered when a session has no visible bind mounts
// or when they could not be inspected.
const VolumePlaceholder = "-"

// Session is a point-in-time projection of one session container.
// It is rebuilt from the runtime on every listing and never edited in place.
type Session struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	State       State    `json:"state"`
	Active      bool     `json:"active"`
	Port        *string  `json:"port"`
	URL         *string  `json:"url"`
	Mounts      []string `json:"mounts"`
	Volume      string   `json:"volume"`
}

// Running reports whether the session container is up.
func (s Session) Running() bool {
	return s.State == StateRunning
}

// DisplayName strips the namespace prefix from a container name.
// The bare prefix maps to DefaultLabel.
func DisplayName(prefix, name string) string {
	if name == prefix {
		return DefaultLabel
	}
	if trimmed := strings.TrimPrefix(name, prefix+"-"); trimmed != name {
		return trimmed
	}
	return name
}

// ConnectionURL builds the terminal address for an externally bound port.
func ConnectionURL(port string) string {
	return "http://localhost:" + port
}

// Sort orders sessions in place: running before stopped, then by name.
func Sort(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Running() != sessions[j].Running() {
			return sessions[i].Running()
		}
		return sessions[i].Name < sessions[j].Name
	})
}

// Action tags a change notification.
type Action string

const (
	ActionStarted   Action = "started"
	ActionStopped   Action = "stopped"
	ActionDied      Action = "died"
	ActionDestroyed Action = "destroyed"
)

// ActionFromRuntime normalizes a runtime event verb (start, stop, die, destroy).
// The second return value is false for verbs that do not affect session state.
func ActionFromRuntime(verb string) (Action, bool) {
	switch verb {
	case "start":
		return ActionStarted, true
	case "stop":
		return ActionStopped, true
	case "die":
		return ActionDied, true
	case "destroy":
		return ActionDestroyed, true
	}
	return "", false
}

// Change tells observers that session state may have changed and should be
// re-fetched. Name is informational; observers must not treat it as state.
type Change struct {
	Action Action `json:"action"`
	Name   string `json:"-"`
}
