package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/loykin/ccp/internal/config"
	"github.com/loykin/ccp/internal/forwarder"
	"github.com/loykin/ccp/internal/history"
	"github.com/loykin/ccp/internal/history/factory"
	"github.com/loykin/ccp/internal/logger"
	"github.com/loykin/ccp/internal/metrics"
	"github.com/loykin/ccp/internal/process"
	"github.com/loykin/ccp/internal/server"
	"github.com/loykin/ccp/internal/settings"
	"github.com/loykin/ccp/internal/shellrc"
	"github.com/loykin/ccp/internal/supervisor"
	"github.com/loykin/ccp/pkg/client"
)

// ErrHistoryDisabled is returned by the history command without a DSN.
var ErrHistoryDisabled = errors.New("history is disabled; set [history] dsn in " + config.FileName)

// command carries the streams and global flags every verb works with.
type command struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	flags  GlobalFlags
	exe    string

	healthTimeout time.Duration
	// notify wraps ctx so an interrupt ends blocking verbs gracefully.
	notify func(ctx context.Context) (context.Context, context.CancelFunc)
}

func newCommand(in io.Reader, out, errOut io.Writer) *command {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return &command{
		in:            in,
		out:           out,
		errOut:        errOut,
		flags:         GlobalFlags{Dir: "."},
		exe:           exe,
		healthTimeout: 2 * time.Second,
		notify: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		},
	}
}

func (c *command) logger() *slog.Logger {
	color := false
	if f, ok := c.errOut.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return logger.NewSlogger(c.errOut, logger.SlogConfig{Level: c.flags.LogLevel, Color: color})
}

func (c *command) loadConfig(dir string) (config.FileConfig, error) {
	path := c.flags.ConfigPath
	if path == "" {
		path = filepath.Join(dir, config.FileName)
	}
	return config.Load(path, dir)
}

// newSupervisor builds a Supervisor for --dir. The returned func closes the
// history sink, if any.
func (c *command) newSupervisor() (*supervisor.Supervisor, config.FileConfig, func(), error) {
	noop := func() {}
	sc, err := supervisor.NewContext(c.flags.Dir)
	if err != nil {
		return nil, config.FileConfig{}, noop, err
	}
	fc, err := c.loadConfig(sc.Dir)
	if err != nil {
		return nil, fc, noop, err
	}
	log := c.logger()
	opts := []supervisor.Option{supervisor.WithLogger(log)}
	opts = append(opts, supervisor.FromConfig(fc, c.exe)...)
	opts = append(opts, supervisor.WithIO(process.IO{Stdin: c.in, Stdout: c.out, Stderr: c.errOut}))

	closeFn := noop
	if fc.History.DSN != "" {
		sink, err := factory.NewSinkFromDSN(resolveDSN(fc.History.DSN, sc.Dir))
		if err != nil {
			log.Warn("history disabled", "error", err)
		} else {
			opts = append(opts, supervisor.WithHistory(sink))
			closeFn = func() { _ = sink.Close() }
		}
	}
	return supervisor.New(sc, opts...), fc, closeFn, nil
}

// Start implements "ccp start".
func (c *command) Start(ctx context.Context, f StartFlags) error {
	if f.Foreground && f.Auto {
		return fmt.Errorf("%w: --foreground and --auto cannot be combined", supervisor.ErrInvalidArguments)
	}
	sup, _, closeFn, err := c.newSupervisor()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := c.notify(ctx)
	defer stop()

	o := supervisor.StartOptions{Mode: supervisor.ModeBackground, AutoLaunchClient: f.Auto}
	if f.Foreground {
		o.Mode = supervisor.ModeForeground
	}
	res, err := sup.Start(ctx, o)
	if res != nil {
		c.printStart(res)
	}
	if errors.Is(err, supervisor.ErrClientNotFound) {
		c.warnf("%v. The forwarder keeps running; start the client yourself.", err)
		return nil
	}
	return err
}

func (c *command) printStart(res *supervisor.StartResult) {
	st := res.Status
	switch {
	case res.Foreground != nil:
		if res.Foreground.Interrupted {
			c.printf("Forwarder stopped.\n")
		} else {
			c.printf("Forwarder exited with code %d.\n", res.Foreground.ExitCode)
		}
	case res.AlreadyRunning:
		c.printf("Forwarder already running (PID %d) at %s\n", st.PID, st.Address)
	case st.Running():
		c.printf("Forwarder started (PID %d) at %s\n", st.PID, st.Address)
		c.printf("Logs: %s (follow with 'ccp logs')\n", st.LogPath)
	}
	if cr := res.Client; cr != nil {
		switch {
		case cr.Interrupted:
			c.printf("Client interrupted.\n")
		case cr.ExitCode != 0:
			c.printf("Client exited with code %d.\n", cr.ExitCode)
		}
	}
}

// Stop implements "ccp stop".
func (c *command) Stop(ctx context.Context) error {
	sup, _, closeFn, err := c.newSupervisor()
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := sup.Stop(ctx)
	if err != nil {
		if errors.Is(err, supervisor.ErrNotRunning) {
			return fmt.Errorf("%w. Start it with 'ccp start'", err)
		}
		return err
	}
	if res.AlreadyExited {
		c.warnf("process %d had already exited; record removed", res.PID)
		return nil
	}
	c.printf("Forwarder stopped (PID %d).\n", res.PID)
	return nil
}

// Status implements "ccp status". A stopped forwarder is not an error.
func (c *command) Status(ctx context.Context) error {
	sup, _, closeFn, err := c.newSupervisor()
	if err != nil {
		return err
	}
	defer closeFn()

	st, err := sup.Status(ctx)
	if err != nil {
		return err
	}
	c.printStatus(ctx, st)
	return nil
}

func (c *command) printStatus(ctx context.Context, st supervisor.Status) {
	if !st.Running() {
		c.printf("Status:  stopped\n")
		c.printf("Run 'ccp start' to start the forwarder.\n")
		return
	}
	c.printf("Status:  running\n")
	c.printf("PID:     %d\n", st.PID)
	c.printf("Address: %s\n", st.Address)
	if !st.StartedAt.IsZero() {
		c.printf("Started: %s (%s ago)\n", st.StartedAt.Local().Format(time.DateTime), time.Since(st.StartedAt).Truncate(time.Second))
	}
	c.printf("Log:     %s\n", st.LogPath)

	hctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	h, err := client.New(client.Config{BaseURL: st.Address, Timeout: c.healthTimeout}).Health(hctx)
	if err != nil {
		c.printf("Health:  unreachable\n")
		return
	}
	c.printf("Health:  %s (%s: big=%s small=%s)\n", h.Status, h.Provider, h.BigModel, h.SmallModel)
}

// Config implements "ccp config": the status followed by the settings file.
func (c *command) Config(ctx context.Context) error {
	if err := c.Status(ctx); err != nil {
		return err
	}
	store := settings.Discover(c.flags.Dir)
	c.printf("\nSettings (%s):\n", store.Path())
	if !store.Exists() {
		c.printf("  (none) run 'ccp init' to create it\n")
		return nil
	}
	lines, err := store.Display()
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l.Malformed {
			c.warnf("malformed settings line: %s", l.Text)
			continue
		}
		c.printf("  %s\n", l.Text)
	}
	return nil
}

// Logs implements "ccp logs". An interrupt ends the follow normally.
func (c *command) Logs(ctx context.Context, f LogsFlags) error {
	sup, _, closeFn, err := c.newSupervisor()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := c.notify(ctx)
	defer stop()
	err = sup.Logs(ctx, c.out, f.Lines)
	if errors.Is(err, supervisor.ErrNoLogFile) {
		return fmt.Errorf("%w. Start the forwarder with 'ccp start' first", err)
	}
	return err
}

// ShellCheck implements "ccp shell check". Problems are reported, never returned.
func (c *command) ShellCheck() error {
	_, fc, closeFn, err := c.newSupervisor()
	if err != nil {
		return err
	}
	closeFn()
	c.reportShell(shellrc.FromEnv(exportLine(fc)).Check())
	return nil
}

func (c *command) reportShell(r shellrc.Report) {
	switch r.Result {
	case shellrc.Present:
		c.printf("Shell:   configured (%s)\n", r.Path)
	case shellrc.Absent:
		c.printf("Shell:   not configured in %s (run 'ccp shell install')\n", r.Path)
	case shellrc.UnsupportedShell:
		c.printf("Shell:   unsupported shell %q; export the client variable manually\n", r.Shell)
	case shellrc.FileUnreadable:
		c.warnf("cannot read %s: %v", r.Path, r.Err)
	}
}

// ShellInstall implements "ccp shell install".
func (c *command) ShellInstall() error {
	_, fc, closeFn, err := c.newSupervisor()
	if err != nil {
		return err
	}
	closeFn()
	c.installShell(shellrc.FromEnv(exportLine(fc)))
	return nil
}

func (c *command) installShell(ch shellrc.Checker) {
	res, err := ch.Install()
	switch {
	case err != nil:
		c.warnf("shell setup skipped: %v", err)
	case res.Written:
		c.printf("Added %q to %s. Open a new shell to pick it up.\n", ch.Line, res.Path)
	default:
		c.printf("%s already exports the forwarder address.\n", res.Path)
	}
}

// Overview is the default action: shell integration, then status.
func (c *command) Overview(ctx context.Context) error {
	if err := c.ShellCheck(); err != nil {
		return err
	}
	return c.Status(ctx)
}

// Serve implements "ccp serve": the forwarder itself.
func (c *command) Serve(ctx context.Context, f ServeFlags) error {
	store := settings.Discover(c.flags.Dir)
	rt, err := config.LoadRuntime(store.Path())
	if err != nil {
		return err
	}
	// An explicit --log-level wins over LOG_LEVEL from the settings file.
	level := rt.LogLevel
	if c.flags.LogLevel != "" {
		level = c.flags.LogLevel
	}
	log := logger.NewSlogger(c.errOut, logger.SlogConfig{Level: level, TimeStamps: true})
	if err := rt.Validate(); err != nil {
		log.Error("invalid settings; run 'ccp init'", "settings", store.Path(), "error", err)
		return err
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	fwd := forwarder.New(rt, forwarder.NewOpenAICompleter(rt, forwarder.Endpoints{}), log, version)
	log.Info("forwarder configured", "provider", rt.PreferredProvider, "big_model", rt.BigModel, "small_model", rt.SmallModel)
	if f.Stdio {
		return fwd.ServeStdio()
	}

	gin.SetMode(gin.ReleaseMode)
	ctx, stop := c.notify(ctx)
	defer stop()
	return server.Serve(ctx, f.Addr, server.NewRouter(fwd, f.BasePath).Handler(), log)
}

// History implements "ccp history".
func (c *command) History(ctx context.Context, f HistoryFlags) error {
	sc, err := supervisor.NewContext(c.flags.Dir)
	if err != nil {
		return err
	}
	fc, err := c.loadConfig(sc.Dir)
	if err != nil {
		return err
	}
	if fc.History.DSN == "" {
		return ErrHistoryDisabled
	}
	sink, err := factory.NewSinkFromDSN(resolveDSN(fc.History.DSN, sc.Dir))
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()
	r, ok := sink.(history.Reader)
	if !ok {
		return fmt.Errorf("history sink %T cannot list events", sink)
	}
	events, err := r.Recent(ctx, f.Limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		c.printf("No events recorded.\n")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-5s  pid=%d", e.OccurredAt.Local().Format(time.DateTime), e.Type, e.PID)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		c.printf("%s\n", line)
	}
	return nil
}

func exportLine(fc config.FileConfig) string {
	return shellrc.ExportLine(fc.Client.EnvVar, fc.Server.Address)
}

// resolveDSN makes a relative SQLite path relative to dir.
func resolveDSN(dsn, dir string) string {
	const scheme = "sqlite://"
	switch {
	case strings.HasPrefix(strings.ToLower(dsn), scheme):
		p := dsn[len(scheme):]
		if p == "" || strings.HasPrefix(p, ":memory:") || filepath.IsAbs(p) {
			return dsn
		}
		return scheme + filepath.Join(dir, p)
	case !strings.Contains(dsn, "://") && !filepath.IsAbs(dsn) && !strings.HasPrefix(dsn, ":memory:"):
		return filepath.Join(dir, dsn)
	default:
		return dsn
	}
}
