// Package lwctl implements the operator CLI for the loan/withdrawal record
// system: login, logout, identity inspection, and case CRUD.
//
// The CLI is the single subscriber for session expiry: when a call comes
// back unauthenticated, the torn-down session is reported with the login
// entry URL and the original destination preserved.
package lwctl

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dxcis/loanwd/internal/auth"
	"github.com/dxcis/loanwd/internal/cases"
	"github.com/dxcis/loanwd/internal/client"
	"github.com/dxcis/loanwd/internal/platform/config"
	"github.com/dxcis/loanwd/internal/session"
	"github.com/dxcis/loanwd/internal/transport"
)

// Env holds CLI configuration sourced from the environment.
type Env struct {
	BaseURL      string `env:"LOANWD_BASE_URL"        envDefault:"http://localhost:8080"`
	Mode         string `env:"LOANWD_MODE"            envDefault:"production"`
	SessionFile  string `env:"LOANWD_SESSION_FILE"`
	UserInfoPath string `env:"LOANWD_USER_INFO_PATH"`
	Username     string `env:"LOANWD_USERNAME"`
	Password     string `env:"LOANWD_PASSWORD"`

	// Development-only: the direct exchange strategy sends these itself.
	ClientID     string `env:"SN_OAUTH_CLIENT_ID"`
	ClientSecret string `env:"SN_OAUTH_CLIENT_SECRET"`
}

// App bundles the wired controller and its dependencies for one invocation.
type App struct {
	env    Env
	ctrl   *auth.Controller
	cases  *cases.Service
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Run executes one CLI invocation.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var envCfg Env
	if err := config.ParseEnv(&envCfg); err != nil {
		return err
	}

	app, err := newApp(envCfg, stdin, stdout, stderr)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		app.usage()
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "login":
		return app.login(ctx, args[1:])
	case "logout":
		return app.logout()
	case "whoami":
		return app.whoami()
	case "cases":
		return app.casesCmd(ctx, args[1:])
	default:
		app.usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newApp(envCfg Env, stdin io.Reader, stdout, stderr io.Writer) (*App, error) {
	mode := transport.Production
	if envCfg.Mode == string(transport.Development) {
		mode = transport.Development
	}
	selector := transport.NewSelector(mode, envCfg.BaseURL)
	store := session.NewFileStore(sessionPath(envCfg))

	var exchanger auth.TokenExchanger
	if mode == transport.Development {
		exchanger = auth.NewDirectExchanger(selector, nil, envCfg.ClientID, envCfg.ClientSecret)
	} else {
		exchanger = auth.NewRelayExchanger(selector, nil)
	}

	ctrl := auth.NewController(auth.Config{
		Store:        store,
		Exchanger:    exchanger,
		Selector:     selector,
		UserInfoPath: envCfg.UserInfoPath,
		SessionExpired: func(returnTo string) {
			fmt.Fprintf(stderr, "Session expired. Sign in again at %s\n", client.LoginURL(returnTo))
		},
	})
	ctrl.Restore()

	return &App{
		env:    envCfg,
		ctrl:   ctrl,
		cases:  cases.NewService(ctrl.Client()),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

func (a *App) usage() {
	fmt.Fprintln(a.stderr, "usage: lwctl <login|logout|whoami|cases> [flags]")
	fmt.Fprintln(a.stderr, "       lwctl cases <list|get|create|update|delete> [flags]")
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	username := fs.String("username", a.env.Username, "login name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("login requires -username or LOANWD_USERNAME")
	}

	password := a.env.Password
	if password == "" {
		fmt.Fprint(a.stderr, "Password: ")
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if err := a.ctrl.Login(ctx, *username, password); err != nil {
		return err
	}

	user := a.ctrl.User()
	fmt.Fprintf(a.stdout, "Signed in as %s", user.UserName)
	if name := a.ctrl.DomainName(); name != "" {
		fmt.Fprintf(a.stdout, " (domain %s)", name)
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func (a *App) logout() error {
	a.ctrl.Logout()
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func (a *App) whoami() error {
	user := a.ctrl.User()
	if a.ctrl.State() != auth.StateAuthenticated || user == nil {
		return fmt.Errorf("not signed in")
	}
	return printJSON(a.stdout, user)
}

func (a *App) casesCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return fmt.Errorf("missing cases subcommand")
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("cases list", flag.ContinueOnError)
		fs.SetOutput(a.stderr)
		query := fs.String("query", "", "encoded record query")
		limit := fs.Int("limit", 20, "maximum records")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		records, err := a.cases.List(ctx, *query, *limit)
		if err != nil {
			return err
		}
		return printJSON(a.stdout, records)

	case "get":
		sysID, err := requireSysID(args[1:])
		if err != nil {
			return err
		}
		record, err := a.cases.Get(ctx, sysID)
		if err != nil {
			return err
		}
		return printJSON(a.stdout, record)

	case "create":
		fs := flag.NewFlagSet("cases create", flag.ContinueOnError)
		fs.SetOutput(a.stderr)
		caseType := fs.String("type", "loan", "case type: loan or withdrawal")
		policy := fs.String("policy", "", "policy number")
		amount := fs.String("amount", "", "requested amount")
		description := fs.String("description", "", "short description")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		record, err := a.cases.Create(ctx, cases.Case{
			Type:             *caseType,
			PolicyNumber:     *policy,
			Amount:           *amount,
			ShortDescription: *description,
		})
		if err != nil {
			return err
		}
		return printJSON(a.stdout, record)

	case "update":
		fs := flag.NewFlagSet("cases update", flag.ContinueOnError)
		fs.SetOutput(a.stderr)
		sysID := fs.String("id", "", "case sys_id")
		state := fs.String("state", "", "new state")
		amount := fs.String("amount", "", "new amount")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *sysID == "" {
			return fmt.Errorf("update requires -id")
		}
		fields := map[string]any{}
		if *state != "" {
			fields["state"] = *state
		}
		if *amount != "" {
			fields["amount"] = *amount
		}
		if len(fields) == 0 {
			return fmt.Errorf("update requires at least one of -state or -amount")
		}
		record, err := a.cases.Update(ctx, *sysID, fields)
		if err != nil {
			return err
		}
		return printJSON(a.stdout, record)

	case "delete":
		sysID, err := requireSysID(args[1:])
		if err != nil {
			return err
		}
		if err := a.cases.Delete(ctx, sysID); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Deleted")
		return nil

	default:
		a.usage()
		return fmt.Errorf("unknown cases subcommand %q", args[0])
	}
}

func requireSysID(args []string) (string, error) {
	fs := flag.NewFlagSet("cases", flag.ContinueOnError)
	sysID := fs.String("id", "", "case sys_id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *sysID == "" {
		return "", fmt.Errorf("missing -id")
	}
	return *sysID, nil
}

func printJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// sessionPath resolves the session file location, defaulting under the user
// config directory.
func sessionPath(envCfg Env) string {
	if envCfg.SessionFile != "" {
		return envCfg.SessionFile
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".lwctl-session.json")
	}
	return filepath.Join(base, "loanwd", "session.json")
}
