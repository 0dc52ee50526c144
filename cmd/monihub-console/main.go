// ABOUTME: CLI for the MoniHub console auth flows
// ABOUTME: Login, session status, token validation, and password recovery

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/api"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/auth"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/config"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/cookie"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/session"
)

const banner = `
                      _ _     _           _
  _ __ ___   ___  _ _(_) |__ _  _| |__
 | '_ ' _ \ / _ \| '_ \ | '_ \ || | '_ \
 | | | | | | (_) | | | | | | | ||_| |_) |
 |_| |_| |_|\___/|_| |_|_|_| |_\__,_|_.__/
`

func main() {
	// A local .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	app, err := newApp()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "login":
		err = app.cmdLogin(args)
	case "logout":
		err = app.cmdLogout()
	case "status":
		err = app.cmdStatus()
	case "me", "whoami":
		err = app.cmdMe()
	case "validate":
		err = app.cmdValidate()
	case "forgot-password":
		err = app.cmdForgotPassword(args)
	case "reset-password":
		err = app.cmdResetPassword(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: monihub-console <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login [username]            Sign in and persist the session")
	fmt.Println("  logout                      Clear the persisted session")
	fmt.Println("  status                      Show session state and time remaining")
	fmt.Println("  me                          Refresh and show the current user")
	fmt.Println("  validate                    Check the token against the server")
	fmt.Println("  forgot-password <email>     Request a password reset email")
	fmt.Println("  reset-password --token <t>  Set a new password with a reset token")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  MONIHUB_CONFIG              Path to a YAML config file")
	fmt.Println("  MONIHUB_API_URL             Backend base URL (default: http://localhost:8080)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  monihub-console login admin")
	fmt.Println("  monihub-console status")
	fmt.Println("  monihub-console reset-password --token eyJhbG... ")
	fmt.Println()
}

// app wires the session store, cookie jar, and auth service for one run.
type app struct {
	cfg    *config.Config
	store  *session.Store
	client *api.Client
	svc    *auth.Service
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging)

	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api base URL: %w", err)
	}
	origin := browser.Origin{Scheme: base.Scheme, Host: base.Hostname()}

	jarPath := cfg.Session.CookieFile
	if jarPath == "" {
		jarPath, err = defaultJarPath()
		if err != nil {
			return nil, err
		}
	}
	jar, err := openFileJar(jarPath)
	if err != nil {
		return nil, err
	}

	cookies := cookie.New(jar, origin)
	store := session.New(cookies)

	var opts []api.Option
	if cfg.API.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.API.Timeout))
	}
	client, err := api.New(cfg.API.BaseURL, store, cookies, opts...)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, store: store, client: client, svc: auth.NewService(store, client)}, nil
}

// loadConfig reads MONIHUB_CONFIG if set, otherwise builds a config from
// the environment.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("MONIHUB_CONFIG"); path != "" {
		return config.Load(path)
	}

	baseURL := os.Getenv("MONIHUB_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	cfg := &config.Config{}
	cfg.API.BaseURL = baseURL
	cfg.Auth.SignInRoute = "/sign-in"
	cfg.Faults.HomeURL = "/"
	cfg.Logging.Level = "warn"
	return cfg, nil
}

func setupLogging(lc config.LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func defaultJarPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "monihub", "cookies.json"), nil
}

func (a *app) cmdLogin(args []string) error {
	username := ""
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		fmt.Print("Username: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("no username given")
		}
		username = strings.TrimSpace(scanner.Text())
	}
	if username == "" {
		return fmt.Errorf("no username given")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := a.svc.Login(ctx, username, password)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Signed in as %s\n", user.AccountNo)
	if len(user.Role) > 0 {
		fmt.Printf("  Roles:     %s\n", strings.Join(user.Role, ", "))
	}
	fmt.Printf("  Expires:   %s (%s)\n",
		time.UnixMilli(user.Exp).Format(time.RFC3339),
		a.svc.TokenTimeRemainingFormatted())

	return nil
}

func (a *app) cmdLogout() error {
	a.svc.Logout()
	color.Green("✓ Signed out")
	return nil
}

func (a *app) cmdStatus() error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Printf("  Backend:   %s\n", a.cfg.API.BaseURL)

	if !a.svc.CheckAndRestore() {
		yellow.Println("  Session:   not signed in")
		fmt.Println()
		return nil
	}

	user := a.svc.CurrentUser()
	green.Println("  Session:   active")
	fmt.Printf("  Account:   %s\n", user.AccountNo)
	if user.Email != "" {
		fmt.Printf("  Email:     %s\n", user.Email)
	}
	if len(user.Role) > 0 {
		fmt.Printf("  Roles:     %s\n", strings.Join(user.Role, ", "))
	}
	fmt.Printf("  Remaining: %s\n", a.svc.TokenTimeRemainingFormatted())
	fmt.Println()

	return nil
}

func (a *app) cmdMe() error {
	if !a.svc.CheckAndRestore() {
		return fmt.Errorf("not signed in (run: monihub-console login)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ok, err := a.svc.RefreshUserInfo(ctx)
	if err != nil {
		return fmt.Errorf("server unavailable: %w", err)
	}
	if !ok {
		return fmt.Errorf("session rejected by the server; sign in again")
	}

	user := a.svc.CurrentUser()
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Identity")
	cyan.Println("  --------")
	fmt.Printf("  Account:   %s\n", user.AccountNo)
	fmt.Printf("  Email:     %s\n", user.Email)
	if len(user.Role) > 0 {
		fmt.Printf("  Roles:     %s\n", strings.Join(user.Role, ", "))
	} else {
		fmt.Println("  Roles:     (none)")
	}
	fmt.Printf("  Remaining: %s\n", a.svc.TokenTimeRemainingFormatted())
	fmt.Println()

	return nil
}

func (a *app) cmdValidate() error {
	if !a.svc.CheckAndRestore() {
		return fmt.Errorf("not signed in")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !a.svc.ValidateToken(ctx) {
		return fmt.Errorf("token is not valid")
	}
	color.Green("✓ Token is valid")
	return nil
}

func (a *app) cmdForgotPassword(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: forgot-password <email>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.client.ForgotPassword(ctx, api.ForgotPasswordRequest{Email: args[0]}); err != nil {
		return err
	}
	color.Green("✓ Reset email requested for %s", args[0])
	return nil
}

func (a *app) cmdResetPassword(args []string) error {
	var token string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--token", "-t":
			if i+1 < len(args) {
				token = args[i+1]
				i++
			}
		}
	}
	if token == "" {
		return fmt.Errorf("usage: reset-password --token <reset-token>")
	}

	password, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.client.ResetPassword(ctx, api.ResetPasswordRequest{Token: token, NewPassword: password}); err != nil {
		return err
	}
	color.Green("✓ Password updated; sign in with the new password")
	return nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read for piped input.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("no password given")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
