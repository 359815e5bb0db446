package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/abgdnv/productdesk/internal/client/api"
	"github.com/abgdnv/productdesk/internal/client/products"
	"github.com/abgdnv/productdesk/internal/client/session"
	"github.com/abgdnv/productdesk/internal/client/state"
	"github.com/abgdnv/productdesk/internal/client/view"
	"github.com/abgdnv/productdesk/internal/config"
	"github.com/abgdnv/productdesk/internal/platform/logger"
	"github.com/abgdnv/productdesk/internal/platform/telemetry"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const serviceName = "productctl"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `Usage: productctl <command> [flags]

Commands:
  login     sign in and store the session
  logout    remove the stored session
  status    tell whether a session is stored
  list      list products
  add       create a product (--name, --price)
  delete    delete a product (--id)

Flags:
`

type options struct {
	configFile string
	ephemeral  bool
	lang       string
	username   string
	password   string
	name       string
	price      float64
	id         int64
}

// cli runs a single productctl command.
type cli struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	// readPassword reads a password from the terminal without echo.
	readPassword func(fd int) ([]byte, error)
	isTerminal   func(fd int) bool
}

func newCLI(stdin *os.File, stdout, stderr io.Writer) *cli {
	return &cli{
		stdin:        stdin,
		stdout:       stdout,
		stderr:       stderr,
		readPassword: term.ReadPassword,
		isTerminal:   term.IsTerminal,
	}
}

// env bundles everything a command needs.
type env struct {
	cfg     *config.ClientConfig
	logger  *slog.Logger
	store   session.Store
	client  *api.Client
	machine *state.Machine
	printer *view.Printer
}

func (c *cli) run(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		_, _ = io.WriteString(c.stderr, usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVarP(&opts.configFile, "config", "c", "config.yaml", "path to the YAML configuration file")
	fs.BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory only")
	fs.StringVar(&opts.lang, "lang", "", "output language, e.g. en or pt-BR (overrides ui.lang)")
	fs.StringVarP(&opts.username, "username", "u", "", "username for login")
	fs.StringVarP(&opts.password, "password", "p", "", "password for login; prompted when omitted")
	fs.StringVar(&opts.name, "name", "", "product name for add")
	fs.Float64Var(&opts.price, "price", 0, "product price for add")
	fs.Int64Var(&opts.id, "id", 0, "product id for delete")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	command := fs.Arg(0)

	cfg, err := config.LoadClient(opts.configFile)
	if err != nil {
		c.errorf("failed to load configuration: %v", err)
		return exitFailure
	}
	if opts.lang != "" {
		cfg.UI.Lang = opts.lang
	}

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		c.errorf("failed to set up telemetry: %v", err)
		return exitFailure
	}
	defer func() {
		_ = shutdownTracing(context.WithoutCancel(ctx))
	}()

	e, closeEnv, err := c.newEnv(cfg, opts.ephemeral)
	if err != nil {
		c.errorf("%v", err)
		return exitFailure
	}
	defer closeEnv()

	// an ephemeral session only lives for this command, so sign in first
	if opts.ephemeral && opts.username != "" && command != "login" {
		if code := c.login(ctx, e, opts); code != exitOK {
			return code
		}
	}

	switch command {
	case "login":
		if code := c.login(ctx, e, opts); code != exitOK {
			return code
		}
		e.printer.LoggedIn(strings.TrimSpace(opts.username))
		return exitOK
	case "logout":
		return c.logout(e)
	case "status":
		e.printer.Status(e.store.IsAuthenticated())
		return exitOK
	case "list":
		return c.list(ctx, e)
	case "add":
		return c.add(ctx, e, opts)
	case "delete":
		return c.remove(ctx, e, opts)
	default:
		c.errorf("unknown command %q", command)
		fs.Usage()
		return exitUsage
	}
}

func (c *cli) newEnv(cfg *config.ClientConfig, ephemeral bool) (*env, func(), error) {
	appLogger := logger.New(c.stderr, cfg.Log.Level).With("component", serviceName)

	printer, err := view.NewPrinter(c.stdout, cfg.UI.Lang, cfg.UI.Currency)
	if err != nil {
		return nil, nil, err
	}

	var store session.Store
	closeStore := func() {}
	if ephemeral {
		store = session.NewMemoryStore()
	} else {
		bolt, err := session.OpenBoltStore(cfg.Session.Path)
		if err != nil {
			return nil, nil, err
		}
		store = bolt
		closeStore = func() {
			if err := bolt.Close(); err != nil {
				appLogger.Warn("Failed to close session store", "error", err)
			}
		}
	}

	client := api.NewFromConfig(cfg, store, appLogger)
	repo := products.NewRepository(client, appLogger)

	mode := state.CreateServer
	if cfg.UI.CreateMode == config.CreateModeOptimistic {
		mode = state.CreateOptimistic
	}
	machine := state.NewMachine(repo, state.WithCreateMode(mode), state.WithLogger(appLogger))
	machine.Subscribe(printer.Render)

	return &env{
		cfg:     cfg,
		logger:  appLogger,
		store:   store,
		client:  client,
		machine: machine,
		printer: printer,
	}, closeStore, nil
}

func (c *cli) login(ctx context.Context, e *env, opts options) int {
	username := strings.TrimSpace(opts.username)
	if username == "" {
		c.errorf("--username is required")
		return exitUsage
	}
	password := opts.password
	if password == "" {
		p, err := c.promptPassword()
		if err != nil {
			c.errorf("%v", err)
			return exitUsage
		}
		password = p
	}

	if err := e.client.Login(ctx, username, password); err != nil {
		e.logger.DebugContext(ctx, "Login failed", "error", err)
		c.errorf("login failed: %v", err)
		return exitFailure
	}
	return exitOK
}

func (c *cli) promptPassword() (string, error) {
	fd := int(c.stdin.Fd())
	if !c.isTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	_, _ = io.WriteString(c.stderr, "Password: ")
	b, err := c.readPassword(fd)
	_, _ = io.WriteString(c.stderr, "\n")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func (c *cli) logout(e *env) int {
	if err := e.client.Logout(); err != nil {
		c.errorf("logout failed: %v", err)
		return exitFailure
	}
	e.printer.LoggedOut()
	return exitOK
}

func (c *cli) list(ctx context.Context, e *env) int {
	if code, ok := c.requireSession(e); !ok {
		return code
	}
	e.machine.Fetch(ctx)
	if code, failed := c.settle(e); failed {
		return code
	}
	if err := e.printer.Products(e.machine.State().Items); err != nil {
		c.errorf("%v", err)
		return exitFailure
	}
	return exitOK
}

func (c *cli) add(ctx context.Context, e *env, opts options) int {
	name := strings.TrimSpace(opts.name)
	if name == "" {
		e.printer.NameRequired()
		return exitUsage
	}
	if opts.price <= 0 {
		e.printer.PriceInvalid()
		return exitUsage
	}
	if code, ok := c.requireSession(e); !ok {
		return code
	}
	e.machine.Create(ctx, name, opts.price)
	if code, failed := c.settle(e); failed {
		return code
	}
	e.printer.Added(name)
	return exitOK
}

func (c *cli) remove(ctx context.Context, e *env, opts options) int {
	if opts.id <= 0 {
		c.errorf("--id is required")
		return exitUsage
	}
	if code, ok := c.requireSession(e); !ok {
		return code
	}
	e.machine.Delete(ctx, opts.id)
	if code, failed := c.settle(e); failed {
		return code
	}
	e.printer.Deleted(opts.id)
	return exitOK
}

func (c *cli) requireSession(e *env) (int, bool) {
	if !e.store.IsAuthenticated() {
		e.printer.Status(false)
		return exitFailure, false
	}
	return exitOK, true
}

// settle reports whether the last machine operation failed. A session that
// disappeared during the operation was cleared by a failed token refresh.
func (c *cli) settle(e *env) (int, bool) {
	if !e.store.IsAuthenticated() {
		e.printer.SessionExpired()
		return exitFailure, true
	}
	if e.machine.State().Error != "" {
		return exitFailure, true
	}
	return exitOK, false
}

func (c *cli) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.stderr, "productctl: "+format+"\n", args...)
}
