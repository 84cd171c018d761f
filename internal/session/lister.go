package session

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Lister projects the runtime listing into Session records.
type Lister struct {
	Runtime       Runtime
	Prefix        string
	TerminalPort  uint16
	InternalMount string
	Logger        *slog.Logger
}

// ListSessions returns the current sorted snapshot. Facet lookups that fail
// degrade only the affected field, and an unreachable runtime yields an
// empty snapshot rather than an error.
func (l *Lister) ListSessions(ctx context.Context) []Session {
	sessions := []Session{}

	containers, err := l.Runtime.ListAll(ctx, l.Prefix)
	if err != nil {
		l.logger().Debug("runtime listing failed", "prefix", l.Prefix, "error", err)
		return sessions
	}

	for _, c := range containers {
		s := Session{
			Name:        c.Name,
			DisplayName: DisplayName(l.Prefix, c.Name),
			State:       StateStopped,
			Mounts:      []string{},
			Volume:      VolumePlaceholder,
		}

		if strings.HasPrefix(c.Status, UpMarker) {
			s.State = StateRunning
			s.Active = true
			if port, ok := l.lookupPort(ctx, c.Name); ok {
				url := ConnectionURL(port)
				s.Port = &port
				s.URL = &url
			}
		}

		if mounts := l.lookupMounts(ctx, c.Name); len(mounts) > 0 {
			s.Mounts = mounts
			s.Volume = strings.Join(mounts, ", ")
		}

		sessions = append(sessions, s)
	}

	Sort(sessions)
	return sessions
}

// Port returns the host port bound to the terminal port of a running session.
func (l *Lister) Port(ctx context.Context, name string) (string, bool) {
	return l.lookupPort(ctx, name)
}

func (l *Lister) lookupPort(ctx context.Context, name string) (string, bool) {
	bindings, err := l.Runtime.ListRunning(ctx, name)
	if err != nil {
		l.logger().Debug("port lookup failed", "session", name, "error", err)
		return "", false
	}
	for _, b := range bindings {
		if b.PrivatePort == l.TerminalPort && b.PublicPort != 0 {
			return strconv.Itoa(int(b.PublicPort)), true
		}
	}
	return "", false
}

func (l *Lister) lookupMounts(ctx context.Context, name string) []string {
	mounts, err := l.Runtime.InspectMounts(ctx, name)
	if err != nil {
		l.logger().Debug("mount inspection failed", "session", name, "error", err)
		return nil
	}

	var out []string
	for _, m := range mounts {
		if m.Type != "bind" || m.Source == "" || m.Destination == "" {
			continue
		}
		if l.InternalMount != "" && m.Destination == l.InternalMount {
			continue
		}
		out = append(out, m.Source+":"+m.Destination)
	}
	return out
}

func (l *Lister) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Registry serves snapshots. Every call goes to the runtime; nothing is cached.
type Registry struct {
	lister *Lister
}

// NewRegistry creates a registry backed by the given lister.
func NewRegistry(lister *Lister) *Registry {
	return &Registry{lister: lister}
}

// Snapshot returns the authoritative ordered session list.
func (r *Registry) Snapshot(ctx context.Context) []Session {
	return r.lister.ListSessions(ctx)
}
