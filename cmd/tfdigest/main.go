package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tfdigest/tfdigest/internal/config"
	"github.com/tfdigest/tfdigest/internal/digest"
	"github.com/tfdigest/tfdigest/internal/history"
	"github.com/tfdigest/tfdigest/internal/loggroup"
	"github.com/tfdigest/tfdigest/internal/notify"
	"github.com/tfdigest/tfdigest/internal/plan"
	"github.com/tfdigest/tfdigest/internal/report"
	"github.com/tfdigest/tfdigest/internal/server"
	"github.com/tfdigest/tfdigest/pkg/models"
)

var (
	version   = "dev"
	cfgFile   string
	dbPath    string
	logFormat string
	logLevel  string
	logger    *slog.Logger
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "tfdigest",
		Short: "tfdigest — Terraform plan log digests",
		Long:  "Condense Terraform and Terragrunt plan logs into categorized, groupable change reports.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			opts := &slog.HandlerOptions{Level: level}
			switch logFormat {
			case "json":
				logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
			case "text":
				logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
			default:
				return fmt.Errorf("invalid --log-format %q (use: text, json)", logFormat)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tfdigest.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "history database path (overrides config)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text, json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		reportCmd(),
		regroupCmd(),
		historyCmd(),
		serveCmd(),
		versionCmd(),
		completionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}
	return cfg
}

// openHistory opens and initializes the run store at the configured path,
// honoring the --db override.
func openHistory(ctx context.Context, cfg *config.Config) *history.Store {
	path := cfg.History.Path
	if dbPath != "" {
		path = dbPath
	}

	store, err := history.New(path)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}

	if err := store.Init(ctx); err != nil {
		logger.Error("initializing database", "error", err)
		os.Exit(1)
	}

	return store
}

func openStore() (*history.Store, *config.Config) {
	cfg := loadConfig()
	return openHistory(context.Background(), cfg), cfg
}

// readInput resolves the plan text source: a file path argument, "-", or
// nothing for stdin. Unreadable input is fatal before the pipeline runs
// and exits with a distinguishable status.
func readInput(args []string) (source, text string) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("reading stdin", "error", err)
			os.Exit(2)
		}
		return "stdin", string(b)
	}

	b, err := os.ReadFile(args[0]) // #nosec G304 -- path from user CLI arg
	if err != nil {
		logger.Error("reading plan file", "path", args[0], "error", err)
		os.Exit(2)
	}
	return args[0], string(b)
}

// buildNotifier assembles the notifier stack from config. The force flag
// turns the stdout notifier on when no backend is configured, so
// `report --notify` always produces something visible.
func buildNotifier(cfg *config.Config, force bool) notify.Notifier {
	var backends []notify.Notifier
	if cfg.Notify.Stdout.Enabled {
		backends = append(backends, notify.NewStdoutNotifier())
	}
	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		backends = append(backends, notify.NewWebhookNotifier(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Headers))
	}
	if len(backends) == 0 {
		if !force {
			return nil
		}
		backends = append(backends, notify.NewStdoutNotifier())
	}
	return notify.NewMulti(backends...)
}

// --- report ---

func reportCmd() *cobra.Command {
	var (
		limit        int
		groupMods    bool
		detail       bool
		alphabetical bool
		output       string
		noColor      bool
		save         bool
		doNotify     bool
	)

	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Digest a plan log into a categorized change report",
		Long: `Digest a Terraform or Terragrunt plan log into a categorized change report.

Reads the plan text from a file, from '-', or from stdin when no argument
is given. Timestamped and ANSI-colored CI logs are handled as-is.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			// Flags override config only when explicitly set.
			if cmd.Flags().Changed("limit") {
				cfg.Report.Limit = limit
			}
			if cmd.Flags().Changed("group-by-module") {
				cfg.Report.GroupByModule = groupMods
			}
			if cmd.Flags().Changed("detail") {
				cfg.Report.Detail = detail
			}
			if cmd.Flags().Changed("alphabetical") {
				cfg.Report.Alphabetical = alphabetical
			}
			if cmd.Flags().Changed("output") {
				cfg.Report.Output = output
			}
			if noColor {
				cfg.Report.Color = false
			}

			source, text := readInput(args)
			lines := plan.Lines(text)

			var store *history.Store
			if save || cfg.History.Enabled {
				store = openHistory(cmd.Context(), cfg)
				defer store.Close() //nolint:errcheck // best-effort cleanup
			}

			d := digest.New(store, buildNotifier(cfg, doNotify), logger)
			res := d.RunSync(cmd.Context(), digest.Request{Source: source, Lines: lines})

			out, err := renderDigest(cfg, res.Digest, lines)
			if err != nil {
				return err
			}
			fmt.Print(out)

			if res.RunID != 0 {
				logger.Info("run recorded", "id", res.RunID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", -1, "addresses shown per section (0 = all; unset hides the lists)")
	cmd.Flags().BoolVar(&groupMods, "group-by-module", false, "cluster modules with identical change signatures")
	cmd.Flags().BoolVar(&detail, "detail", false, "show per-resource parameter changes")
	cmd.Flags().BoolVar(&alphabetical, "alphabetical", false, "list all resources alphabetically")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json, yaml, dot, mermaid")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&save, "save", false, "record this run in the history database")
	cmd.Flags().BoolVar(&doNotify, "notify", false, "dispatch a digest notification")
	return cmd
}

// renderDigest serializes the digest in the configured output format. The
// raw plan lines feed change-block extraction in text mode.
func renderDigest(cfg *config.Config, d *models.Digest, lines []string) (string, error) {
	switch cfg.Report.Output {
	case "text":
		r := report.New(report.Options{
			Limit:        cfg.Report.Limit,
			GroupModules: cfg.Report.GroupByModule,
			Detail:       cfg.Report.Detail,
			Alphabetical: cfg.Report.Alphabetical,
			Color:        cfg.Report.Color,
		})
		return r.Render(d, lines), nil
	case "json":
		b, err := report.EncodeJSON(d)
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case "yaml":
		b, err := report.EncodeYAML(d)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case "dot":
		return report.ExportDOT(d), nil
	case "mermaid":
		return report.ExportMermaid(d), nil
	default:
		return "", fmt.Errorf("unsupported output %q (use: text, json, yaml, dot, mermaid)", cfg.Report.Output)
	}
}

// --- regroup ---

func regroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regroup [file]",
		Short: "Rewrite a Terragrunt run-all log into collapsible CI groups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, text := readInput(args)
			for _, line := range loggroup.Fold(plan.Lines(text)) {
				fmt.Println(line)
			}
			return nil
		},
	}
}

// --- history ---

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded digest runs",
	}
	cmd.AddCommand(historyListCmd(), historyStatsCmd(), historyPruneCmd())
	return cmd
}

func historyListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent digest runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _ := openStore()
			defer store.Close() //nolint:errcheck // best-effort cleanup

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded. Use 'tfdigest report --save' first.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSOURCE\tANALYZED\tCREATED\tCHANGED\tREPLACED\tDESTROYED\tMOVED\tRESOURCES")
			for _, r := range runs {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
					r.ID, r.Source, r.AnalyzedAt.Format("2006-01-02 15:04"),
					r.Created, r.Changed, r.Replaced, r.Destroyed, r.Moved, r.Resources)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func historyStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics across recorded runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _ := openStore()
			defer store.Close() //nolint:errcheck // best-effort cleanup
			ctx := cmd.Context()

			count, err := store.RunCount(ctx)
			if err != nil {
				return err
			}
			totals, err := store.ActionTotals(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Runs recorded: %d\n\n", count)
			fmt.Println("Action totals:")
			for _, a := range models.Actions() {
				fmt.Printf("  %-10s %d\n", string(a), totals[string(a)])
			}
			return nil
		},
	}
}

func historyPruneCmd() *cobra.Command {
	var olderThan int
	var force bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a threshold",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("specify --older-than with a positive number of days")
			}

			store, _ := openStore()
			defer store.Close() //nolint:errcheck // best-effort cleanup
			ctx := cmd.Context()

			runs, err := store.OlderThan(ctx, olderThan)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No matching runs found.")
				return nil
			}

			_, _ = fmt.Fprintf(os.Stdout, "Found %d runs to prune:\n\n", len(runs))
			limit := 10
			if len(runs) < limit {
				limit = len(runs)
			}
			for _, r := range runs[:limit] {
				_, _ = fmt.Fprintf(os.Stdout, "  #%d %s (analyzed: %s)\n", r.ID, r.Source, r.AnalyzedAt.Format("2006-01-02"))
			}
			if len(runs) > 10 {
				_, _ = fmt.Fprintf(os.Stdout, "  ... and %d more\n", len(runs)-10)
			}

			if !force {
				_, _ = fmt.Fprintf(os.Stdout, "\nDelete %d runs? [y/N]: ", len(runs))
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					_, _ = fmt.Fprintln(os.Stdout, "Aborted.")
					return nil
				}
			}

			n, err := store.PruneOlderThan(ctx, olderThan)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Deleted %d runs.\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 0, "delete runs analyzed more than N days ago")
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var listen string
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the digest API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg := openStore()

			if listen == "" {
				listen = cfg.Server.Listen
			}

			notifier := buildNotifier(cfg, false)
			d := digest.New(store, notifier, logger)
			srv := server.New(store, d, logger, listen, readOnly || cfg.Server.ReadOnly,
				cfg.Server.APIToken, cfg.Server.CORSOrigin, version)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Scheduled history pruning
			if cfg.History.RetentionDays > 0 {
				ret, err := history.NewRetention(store, cfg.History.PruneInterval, cfg.History.RetentionDays, logger)
				if err != nil {
					logger.Error("invalid prune interval", "error", err)
				} else {
					ret.Start(ctx)
					defer ret.Stop()
				}
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
				_ = store.Close()
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config or :8080)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "analyze without recording runs")
	return cmd
}

// --- version ---

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("tfdigest %s\n", version)
		},
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (use: debug, info, warn, error)", s)
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tfdigest.

To load completions:

Bash:
  $ source <(tfdigest completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ tfdigest completion bash > /etc/bash_completion.d/tfdigest
  # macOS:
  $ tfdigest completion bash > $(brew --prefix)/etc/bash_completion.d/tfdigest

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ tfdigest completion zsh > "${fpath[1]}/_tfdigest"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ tfdigest completion fish | source
  # To load completions for each session, execute once:
  $ tfdigest completion fish > ~/.config/fish/completions/tfdigest.fish

PowerShell:
  PS> tfdigest completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, add the output to your profile:
  PS> tfdigest completion powershell >> $PROFILE
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
