package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/remindme/internal/ai"
	"github.com/nhle/remindme/internal/app"
	"github.com/nhle/remindme/internal/credential"
	"github.com/nhle/remindme/internal/mcpserver"
	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/notify"
	"github.com/nhle/remindme/internal/reminder"
	"github.com/nhle/remindme/internal/server"
	"github.com/nhle/remindme/internal/store"
	appsync "github.com/nhle/remindme/internal/sync"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
)

// Environment variables consulted before the keyring.
const (
	envAPIKey     = "ANTHROPIC_API_KEY"
	envAgentToken = "REMINDME_AGENT_TOKEN"
)

func main() {
	args := os.Args[1:]
	cmd := "tui"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "tui":
		err = cmdTUI(args)
	case "serve":
		err = cmdServe(args)
	case "mcp":
		err = cmdMCP(args)
	case "login":
		err = cmdLogin(args)
	case "version":
		fmt.Printf("remindme %s (commit: %s)\n", version, commit)
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindme %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: remindme [command] [flags]

commands:
  tui      run the terminal UI (default)
  serve    run the agent HTTP endpoint
  mcp      serve task tools over MCP on stdio
  login    store a credential in the system keyring
  version  print version information`)
}

// runtimeDeps are shared by every command that touches tasks.
type runtimeDeps struct {
	cfg   *model.AppConfig
	kv    *store.SQLiteStore
	tasks *store.TaskStore
}

func (d *runtimeDeps) Close() {
	if err := d.kv.Close(); err != nil {
		log.Printf("closing database: %v", err)
	}
}

func openDeps(ctx context.Context, configPath string) (*runtimeDeps, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}

	kv, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	tasks, err := store.OpenTaskStore(ctx, kv, store.Options{})
	if err != nil {
		kv.Close()
		return nil, err
	}

	return &runtimeDeps{cfg: cfg, kv: kv, tasks: tasks}, nil
}

// gatewayFor picks the credential matching the configured provider.
func gatewayFor(cfg model.AgentConfig) ai.Gateway {
	switch cfg.Provider {
	case model.ProviderRemote:
		return ai.NewGateway(cfg, credential.Lookup(envAgentToken, credential.AgentToken))
	case model.ProviderOllama:
		return ai.NewGateway(cfg, "")
	default:
		return ai.NewGateway(cfg, credential.Lookup(envAPIKey, credential.ClaudeAPIKey))
	}
}

func cmdTUI(args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to config file")
	logPath := fs.String("log", filepath.Join(os.TempDir(), "remindme.log"), "log file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The terminal belongs to Bubble Tea; log lines go to a file.
	logFile, err := tea.LogToFile(*logPath, "remindme")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	ctx := context.Background()
	deps, err := openDeps(ctx, *configPath)
	if err != nil {
		return err
	}
	defer deps.Close()
	cfg := deps.cfg

	var notifier notify.Notifier
	if cfg.Reminders.Desktop {
		notifier = notify.DetectNotifier()
	}
	var speaker notify.Speaker
	if cfg.Reminders.Speech {
		speaker = notify.DetectSpeaker()
	}

	worker := reminder.NewWorker(32, notifier)
	worker.Start()
	defer func() {
		worker.Stop()
		if n := worker.Dropped(); n > 0 {
			log.Printf("reminder: %d firings dropped while the UI was busy", n)
		}
	}()

	sched := reminder.NewScheduler(worker, nil)
	deps.tasks.Subscribe(func(c store.Change) {
		if c.AffectsSchedule() {
			sched.Sync(c.Tasks)
		}
	})
	// Timers do not survive a restart; re-arm them from persisted state.
	sched.Sync(deps.tasks.List())

	poller := appsync.New(deps.tasks, appsync.Options{
		Interval: cfg.Reminders.PollInterval(),
		Notifier: notifier,
		Speaker:  speaker,
	})
	defer poller.Stop()

	assistant := ai.NewAssistant(deps.tasks, gatewayFor(cfg.Agent), cfg.Agent.Timeout())

	root := app.New(app.Options{
		Store:      deps.tasks,
		Assistant:  assistant,
		Poller:     poller,
		Fired:      worker.C(),
		Snooze:     cfg.Reminders.SnoozeOffset(),
		Notes:      capabilityNotes(cfg, notifier, speaker, assistant),
		Config:     cfg,
		ConfigPath: *configPath,
	})

	p := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}

func capabilityNotes(cfg *model.AppConfig, n notify.Notifier, s notify.Speaker, a *ai.Assistant) []string {
	onOff := func(ok bool) string {
		if ok {
			return "on"
		}
		return "off"
	}
	assistant := "offline suggestions"
	if a.Live() {
		assistant = cfg.Agent.Provider
	}
	return []string{
		fmt.Sprintf("Overdue check every %s, snooze %s", cfg.Reminders.PollInterval(), cfg.Reminders.SnoozeOffset()),
		"Desktop notifications: " + onOff(n != nil),
		"Speech: " + onOff(s != nil),
		"Assistant: " + assistant,
	}
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to config file")
	addr := fs.String("addr", "", "listen address (overrides server.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// The endpoint answers with a local backend; relaying to another
	// endpoint would only forward the request again.
	agentCfg := cfg.Agent
	if agentCfg.Provider == model.ProviderRemote {
		agentCfg.Provider = model.ProviderAnthropic
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := server.NewHandler(server.Options{
		Gateway: gatewayFor(agentCfg),
		Timeout: cfg.Agent.Timeout(),
		Token:   credential.Lookup(envAgentToken, credential.AgentToken),
		Logger:  log.Default(),
	})

	log.Printf("listening on http://%s", cfg.Server.Addr)
	return server.ListenAndServe(ctx, cfg.Server.Addr, h)
}

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// stdout carries the protocol.
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openDeps(ctx, *configPath)
	if err != nil {
		return err
	}
	defer deps.Close()

	assistant := ai.NewAssistant(deps.tasks, gatewayFor(deps.cfg.Agent), deps.cfg.Agent.Timeout())
	return mcpserver.Run(ctx, mcpserver.NewTools(deps.tasks, assistant), version)
}

func cmdLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	key := fs.String("key", credential.ClaudeAPIKey, "keyring item: "+credential.ClaudeAPIKey+" or "+credential.AgentToken)
	remove := fs.Bool("delete", false, "remove the item instead of storing it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *key != credential.ClaudeAPIKey && *key != credential.AgentToken {
		return fmt.Errorf("unknown keyring item %q", *key)
	}
	if *remove {
		return credential.Delete(*key)
	}

	fmt.Fprintf(os.Stderr, "%s: ", *key)
	var value string
	if _, err := fmt.Fscanln(os.Stdin, &value); err != nil {
		return fmt.Errorf("reading value: %w", err)
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("empty value")
	}
	return credential.Set(*key, strings.TrimSpace(value))
}
