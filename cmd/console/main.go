// Command console drives the dashboard session layer from a terminal.
//
//	console [-cookies FILE] login -u <identifier> -p <password>
//	console [-cookies FILE] whoami
//	console [-cookies FILE] logout
//
// Only the refresh cookie is kept between runs, in the cookie file, the way a
// browser would keep it. The access token lives for one invocation and is
// re-minted by the silent restore on the next.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/zmooth/console/internal/console"
	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/pkg/config"
	"github.com/zmooth/console/pkg/logger"
)

const (
	exitOK = iota
	exitError
	exitUsage
	exitUnauthenticated
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("console", flag.ContinueOnError)
	global.SetOutput(stderr)
	cookieFile := global.String("cookies", defaultCookieFile(), "file holding the refresh cookie between runs")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: console [-cookies FILE] <login|whoami|logout> [flags]")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: stderr, Service: "console"})

	c, err := console.New(console.OptionsFromConfig(cfg), log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	jar := cookieStore{path: *cookieFile}
	cookies, err := jar.load()
	if err != nil {
		log.Warn().Err(err).Str("file", jar.path).Msg("ignoring unreadable cookie file")
	}
	c.Client.SetCookies(cookies)
	c.Mount(ctx)

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	var code int
	switch cmd {
	case "login":
		code = runLogin(ctx, c, cmdArgs, stdout, stderr)
	case "whoami":
		code = runWhoami(c, stdout, stderr)
	case "logout":
		c.Session.Logout(ctx)
		code = exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return exitUsage
	}

	if err := jar.save(c.Client.Cookies()); err != nil {
		log.Warn().Err(err).Str("file", jar.path).Msg("could not save cookie file")
	}
	return code
}

func runLogin(ctx context.Context, c *console.Console, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	identifier := fs.String("u", "", "email or username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *identifier == "" || *password == "" {
		fmt.Fprintln(stderr, "login: -u and -p are required")
		return exitUsage
	}

	identity, err := c.Session.Login(ctx, *identifier, *password)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		fmt.Fprintln(stderr, "login failed: invalid credentials")
		return exitUnauthenticated
	case errors.Is(err, domain.ErrTransport):
		fmt.Fprintln(stderr, "login failed: backend unreachable")
		return exitError
	case err != nil:
		fmt.Fprintf(stderr, "login failed: %v\n", err)
		return exitError
	}

	return printIdentity(stdout, stderr, identity)
}

func runWhoami(c *console.Console, stdout, stderr io.Writer) int {
	snap := c.Session.Snapshot()
	if !snap.Authenticated() || snap.Identity == nil {
		fmt.Fprintln(stderr, "not logged in")
		return exitUnauthenticated
	}
	return printIdentity(stdout, stderr, snap.Identity)
}

type identityOutput struct {
	Identity *domain.Identity `json:"identity"`
	Home     string           `json:"home"`
}

func printIdentity(stdout, stderr io.Writer, identity *domain.Identity) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(identityOutput{Identity: identity, Home: domain.HomePath(identity)}); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitOK
}

func defaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".zmooth-console-cookies.json"
	}
	return filepath.Join(dir, "zmooth-console", "cookies.json")
}
