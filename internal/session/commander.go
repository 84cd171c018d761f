package session

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// DefaultCreateError is reported when the creation script fails without
// writing anything to stderr.
const DefaultCreateError = "failed to create session"

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// Result is the outcome of a lifecycle command as returned to callers.
type Result struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateOptions are the operator-supplied parameters for a new session.
type CreateOptions struct {
	Name   string `json:"name"`
	Volume string `json:"volume"`
	Query  string `json:"query"`
}

// EnvSource supplies KEY=value pairs injected into the terminal server.
type EnvSource interface {
	Env() ([]string, error)
}

// Recorder observes command outcomes.
type Recorder interface {
	ObserveCommand(op string, success bool)
}

// CommanderConfig holds the fixed parameters of lifecycle commands.
type CommanderConfig struct {
	Prefix       string
	TerminalPort uint16
	Wrapper      string
	Title        string
	StopGrace    time.Duration
	CreateScript string
}

// Commander executes lifecycle transitions against the runtime. It never
// touches cached session records; the next listing observes the effect.
type Commander struct {
	runtime  Runtime
	lister   *Lister
	secrets  EnvSource
	recorder Recorder
	cfg      CommanderConfig
	logger   *slog.Logger
}

// NewCommander wires a commander. secrets and recorder may be nil.
func NewCommander(logger *slog.Logger, runtime Runtime, lister *Lister, secrets EnvSource, recorder Recorder, cfg CommanderConfig) *Commander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commander{
		runtime:  runtime,
		lister:   lister,
		secrets:  secrets,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Stop gracefully stops a session. Failure is advisory.
func (c *Commander) Stop(ctx context.Context, name string) bool {
	err := c.runtime.Stop(ctx, name, c.cfg.StopGrace)
	return c.finish("stop", name, err)
}

// Delete removes a stopped session. The runtime rejects running containers.
func (c *Commander) Delete(ctx context.Context, name string) bool {
	err := c.runtime.Remove(ctx, name)
	return c.finish("delete", name, err)
}

// Start boots a stopped session, launches the terminal server inside it and
// reports the URL if the runtime has bound the terminal port.
func (c *Commander) Start(ctx context.Context, name string) Result {
	if err := c.runtime.Start(ctx, name); err != nil {
		c.finish("start", name, err)
		return Result{}
	}

	env := c.env()
	cmd := c.TerminalCommand(name)
	if err := c.runtime.ExecDetached(ctx, name, env, cmd); err != nil {
		c.finish("start", name, err)
		return Result{}
	}

	res := Result{Success: true}
	if port, ok := c.lister.Port(ctx, name); ok {
		res.URL = ConnectionURL(port)
	}
	c.finish("start", name, nil)
	return res
}

// TerminalCommand is the command line that launches the terminal server.
func (c *Commander) TerminalCommand(name string) []string {
	return []string{
		"ttyd", "-W",
		"-t", "titleFixed=" + c.Title(name),
		"-p", strconv.Itoa(int(c.cfg.TerminalPort)),
		c.cfg.Wrapper,
	}
}

// Title is the browser title of a session's terminal.
func (c *Commander) Title(name string) string {
	if name == c.cfg.Prefix {
		return c.cfg.Title
	}
	return c.cfg.Title + " - " + DisplayName(c.cfg.Prefix, name)
}

func (c *Commander) env() []string {
	if c.secrets == nil {
		return nil
	}
	env, err := c.secrets.Env()
	if err != nil {
		c.logger.Debug("secrets unavailable, starting without extra env", "error", err)
		return nil
	}
	return env
}

// Create runs the session creation script. Failure carries the script's
// stderr since it usually describes a configuration problem.
func (c *Commander) Create(ctx context.Context, opts CreateOptions) Result {
	args := CreateArgs(opts)
	c.logger.Info("creating session", "command", shellquote.Join(append([]string{c.cfg.CreateScript}, args...)...))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.CreateScript, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = DefaultCreateError
		}
		c.logger.Error("session creation failed", "name", opts.Name, "error", err, "stderr", msg)
		c.observe("create", false)
		return Result{Error: msg}
	}

	c.observe("create", true)
	return Result{Success: true, URL: urlPattern.FindString(stdout.String())}
}

// CreateArgs builds the creation script arguments. Browser launching is
// always suppressed with -n.
func CreateArgs(opts CreateOptions) []string {
	var args []string
	if name := strings.TrimSpace(opts.Name); name != "" {
		args = append(args, "-s", name)
	}
	if volume := strings.TrimSpace(opts.Volume); volume != "" {
		args = append(args, "-v", volume)
	}
	if opts.Query != "" {
		args = append(args, "-q", EscapeQuery(opts.Query))
	}
	return append(args, "-n")
}

// EscapeQuery escapes double quotes so the query stays one argument when the
// script re-expands it.
func EscapeQuery(q string) string {
	return strings.ReplaceAll(q, `"`, `\"`)
}

func (c *Commander) finish(op, name string, err error) bool {
	if err != nil {
		c.logger.Warn("session command failed", "op", op, "session", name, "error", err)
		c.observe(op, false)
		return false
	}
	c.logger.Info("session command succeeded", "op", op, "session", name)
	c.observe(op, true)
	return true
}

func (c *Commander) observe(op string, success bool) {
	if c.recorder != nil {
		c.recorder.ObserveCommand(op, success)
	}
}
