// neonddos is the terminal console for a NeonDDoS protection server.
//
// Usage:
//
//	neonddos [global flags] <command> [command flags]
//
// Commands:
//
//	login      Sign in and store the session
//	logout     Forget the stored session
//	dashboard  Live dashboard with sidebar navigation
//	watch      Print stream messages as they arrive
//	alerts     Show the alert history
//	logs       Query console logs (Splunk-like)
//	version    Show version
//
// Global Flags:
//
//	--server    Dashboard server URL (default: http://127.0.0.1:8080)
//	--data-dir  Directory for the session and log database
//	--config    Config file (default: ~/.neonddos/config.yaml)
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/neonddos/console/internal/cli"
	"github.com/neonddos/console/internal/config"
	"github.com/neonddos/console/internal/protocol"
	"github.com/neonddos/console/internal/store"
	"github.com/neonddos/console/internal/stream"
	"github.com/neonddos/console/internal/ui"
)

const version = "0.3.0"

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

var (
	serverFlag  string
	dataDirFlag string
	configPath  string
	logLevel    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "neonddos",
		Short: "NeonDDoS protection console",
		Long: `neonddos is a terminal console for a NeonDDoS protection server.

It signs in over the HTTP API, then follows the live attack stream over
a WebSocket and shows it as a dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Dashboard server URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Console log level (debug, info, warn, error)")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError reports a command failure unless the login view already showed it.
func printError(w io.Writer, err error) {
	if cli.Reported(err) {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// env is the loaded configuration plus the opened local store.
type env struct {
	cfg    config.Config
	store  *store.Store
	logger *store.Logger
}

func setup() (*env, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath(os.Getenv)
	}

	cfg, err := config.Load(path, os.Getenv, config.Overrides{
		Server:   serverFlag,
		DataDir:  dataDirFlag,
		LogLevel: logLevel,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	logger := store.NewLogger(st, "cli")
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		st.Close()
		return nil, err
	}
	logger.RedirectStdLog("INFO")

	return &env{cfg: cfg, store: st, logger: logger}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// session returns the stored session for the configured server, or "".
func (e *env) session() (string, error) {
	u, err := e.cfg.ServerURL()
	if err != nil {
		return "", err
	}
	value, err := e.store.Cookie(u.Host, protocol.SessionCookie)
	if errors.Is(err, store.ErrNoSession) {
		return "", nil
	}
	return value, err
}

func (e *env) newManager(d *stream.Dispatcher, alerts stream.Alerter) (*stream.Manager, error) {
	u, err := e.cfg.ServerURL()
	if err != nil {
		return nil, err
	}
	session, err := e.session()
	if err != nil {
		return nil, err
	}
	if session == "" {
		e.logger.Warn("No stored session for %s, streaming unauthenticated", u.Host)
	}

	return stream.NewManager(stream.Config{
		URL:                  stream.WebSocketURL(u),
		SessionID:            session,
		MaxReconnectAttempts: e.cfg.Reconnect.MaxAttempts,
		ReconnectDelay:       e.cfg.Reconnect.Delay,
	}, d, alerts, e.logger.Component("stream")), nil
}

func loginCmd() *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in to the dashboard server.

The password is prompted for unless --password-stdin is given. On success
the session cookie is stored in the data directory and used by the
dashboard and watch commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.cfg.ServerURL()
			if err != nil {
				return err
			}
			client, err := cli.NewClient(u, e.cfg.Login.Timeout)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(os.Stdin)
			if username == "" {
				fmt.Print("Username: ")
				line, _ := reader.ReadString('\n')
				username = strings.TrimSpace(line)
			}
			if password == "" {
				if passwordStdin || !term.IsTerminal(int(os.Stdin.Fd())) {
					line, _ := reader.ReadString('\n')
					password = strings.TrimRight(line, "\r\n")
				} else {
					fmt.Print("Password: ")
					raw, err := term.ReadPassword(int(os.Stdin.Fd()))
					fmt.Println()
					if err != nil {
						return fmt.Errorf("failed to read password: %w", err)
					}
					password = string(raw)
				}
			}

			view := cli.NewTerminalView(os.Stdout, client.URL)
			submitter := cli.NewLoginSubmitter(client, e.store, view, e.logger.Component("login"))

			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Login.Timeout)
			defer cancel()
			return submitter.Submit(ctx, username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer the prompt)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.cfg.ServerURL()
			if err != nil {
				return err
			}
			if err := e.store.DeleteCookie(u.Host, protocol.SessionCookie); err != nil {
				return err
			}
			fmt.Printf("Logged out of %s\n", u.Host)
			return nil
		},
	}
}

func dashboardCmd() *cobra.Command {
	var noClear bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Live dashboard with sidebar navigation",
		Long: `Open the live dashboard.

Type a section number or name and press enter to switch sections,
't' to collapse or expand the sidebar and 'q' to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.cfg.ServerURL()
			if err != nil {
				return err
			}

			// Console output belongs to the dashboard; logs still go to the store.
			e.logger.SetOutput(io.Discard)

			dash := ui.NewDashboard(u.Host, e.store, e.logger.Component("ui"))
			mgr, err := e.newManager(stream.NewDispatcher(dash, dash), dash)
			if err != nil {
				return err
			}

			nav := ui.NewNavigator(ui.DefaultEntries)
			console := ui.NewConsole(os.Stdout, u.Host, nav, dash, mgr.State)
			console.Clear = !noClear
			mgr.OnStateChange = func(stream.State) { console.Refresh() }

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- mgr.Run(ctx) }()

			err = console.Run(ctx, os.Stdin)
			cancel()
			if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, stream.ErrGaveUp) {
				return runErr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noClear, "no-clear", false, "Append frames instead of clearing the screen")

	return cmd
}

func watchCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print stream messages as they arrive",
		Long: `Follow the live stream and print one line per message.

Use --json for one JSON object per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.cfg.ServerURL()
			if err != nil {
				return err
			}

			p := newPrinter(os.Stdout, outputJSON, u.Host, e.store, e.logger.Component("watch"))
			mgr, err := e.newManager(stream.NewDispatcher(p, p), p)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = mgr.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON lines")

	return cmd
}

func alertsCmd() *cobra.Command {
	var limit int
	var all bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show the alert history",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			server := ""
			if !all {
				u, err := e.cfg.ServerURL()
				if err != nil {
					return err
				}
				server = u.Host
			}

			entries, err := e.store.RecentAlerts(server, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No alerts recorded.")
				return nil
			}

			fmt.Printf("\nAlerts (%d)\n", len(entries))
			fmt.Println("────────────────────────────────────────────────────────────────────")
			for _, a := range entries {
				fmt.Printf("%s %s[%-7s]%s %s %s\n",
					a.Timestamp.Format("2006-01-02 15:04:05"), severityColor(a.Severity), a.Severity, colorReset,
					colorGray+a.Server+colorReset, a.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of alerts to show")
	cmd.Flags().BoolVar(&all, "all", false, "Show alerts of every server")

	return cmd
}

func logsCmd() *cobra.Command {
	var earliest, latest, search string
	var levels, components []string
	var limit int
	var showStats bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query console logs (Splunk-like time syntax)",
		Long: `Query the console's own logs with Splunk-like time range syntax.

Time range examples:
  -1h        1 hour ago
  -30m       30 minutes ago
  -7d        7 days ago
  -1h@h      1 hour ago, snapped to hour boundary
  @d         Beginning of today
  now        Current time
  2024-01-15 Specific date

Usage examples:
  neonddos logs                            # Last 15 minutes
  neonddos logs --earliest=-1h             # Last hour
  neonddos logs --level=ERROR              # Only errors
  neonddos logs --search="reconnect"       # Search in message
  neonddos logs --component=stream,login   # Filter by component
  neonddos logs --stats                    # Local database usage`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if showStats {
				stats, err := e.store.GetStorageStats()
				if err != nil {
					return err
				}
				printStorageStats(os.Stdout, stats)
				return nil
			}

			tr, err := store.ParseTimeRange(earliest, latest)
			if err != nil {
				return err
			}

			upper := make([]string, len(levels))
			for i, l := range levels {
				upper[i] = strings.ToUpper(l)
			}

			result, err := e.store.QueryLogs(store.LogQuery{
				TimeRange:  tr,
				Levels:     upper,
				Components: components,
				Search:     search,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			if len(result.Entries) == 0 {
				fmt.Println("No logs found for the specified time range.")
				return nil
			}

			fmt.Printf("\nLogs (%d of %d)\n", len(result.Entries), result.TotalCount)
			fmt.Println("────────────────────────────────────────────────────────────────────")

			for _, l := range result.Entries {
				fmt.Printf("%s %s[%-5s]%s [%s] %s",
					l.Timestamp.Format("2006-01-02 15:04:05"), getLevelColor(l.Level), l.Level, colorReset,
					l.Component, l.Message)
				if l.Fields != "" {
					fmt.Printf(" %s%s%s", colorGray, l.Fields, colorReset)
				}
				fmt.Println()
			}

			if result.HasMore {
				fmt.Printf("\n... %d more entries (use --limit to see more)\n", result.TotalCount-int64(len(result.Entries)))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&earliest, "earliest", "-15m", "Start time (Splunk syntax: -1h, -30m, @d)")
	cmd.Flags().StringVar(&latest, "latest", "now", "End time (Splunk syntax)")
	cmd.Flags().StringSliceVar(&levels, "level", nil, "Filter by level (DEBUG, INFO, WARN, ERROR)")
	cmd.Flags().StringSliceVar(&components, "component", nil, "Filter by component (cli, stream, login)")
	cmd.Flags().StringVar(&search, "search", "", "Search text in message")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max entries to return")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Show local database usage instead of entries")

	return cmd
}

func printStorageStats(w io.Writer, stats map[string]float64) {
	fmt.Fprintln(w, "\nStorage")
	fmt.Fprintln(w, "────────────────────────────────────────────────────────────────────")
	fmt.Fprintf(w, "  %-10s %.2f MB (limit %d MB)\n", "Database:", stats["db_size_mb"], store.MaxStorageBytes/(1024*1024))
	fmt.Fprintf(w, "  %-10s %.0f\n", "Logs:", stats["log_count"])
	fmt.Fprintf(w, "  %-10s %.0f\n", "Alerts:", stats["alert_count"])
	fmt.Fprintf(w, "  %-10s %.0f\n", "Sessions:", stats["session_count"])
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("neonddos console version %s\n", version)
		},
	}
}

func getLevelColor(level string) string {
	switch level {
	case "ERROR":
		return colorRed
	case "WARN":
		return colorYellow
	case "INFO":
		return colorBlue
	case "DEBUG":
		return colorGray
	default:
		return ""
	}
}

func severityColor(severity string) string {
	switch stream.Severity(severity) {
	case stream.SeverityDanger:
		return colorRed
	case stream.SeverityWarning:
		return colorYellow
	default:
		return colorBlue
	}
}
