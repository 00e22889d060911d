package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackcoderx/hopp/pkg/core"
	"github.com/blackcoderx/hopp/pkg/core/tools"
	"github.com/blackcoderx/hopp/pkg/sandbox"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "hopp",
		Short: "hopp - run API requests with pre-request and test scripts",
		Long: `hopp runs saved API requests from the .hopp folder. Each request can carry a
pre-request script that edits the request and environment before it is sent,
and a test script whose assertions are reported after the response arrives.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .hopp/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

func initConfig() {
	// Load .env file if it exists (optional, warn if malformed)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(core.HoppFolderName)
		viper.SetConfigType("json")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("HOPP")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// newLogger builds the stderr logger from the configured level.
func newLogger(cfg core.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// app bundles what every command needs.
type app struct {
	cfg       core.Config
	logger    *slog.Logger
	workspace *tools.Workspace
}

func newApp() (*app, error) {
	if _, err := os.Stat(core.HoppFolderName); os.IsNotExist(err) {
		return nil, fmt.Errorf("no %s folder found, run 'hopp init' first", core.HoppFolderName)
	}
	cfg := core.LoadConfig(viper.GetViper())
	return &app{
		cfg:       cfg,
		logger:    newLogger(cfg),
		workspace: tools.NewWorkspace(core.HoppFolderName),
	}, nil
}

func (a *app) pipeline(opts ...core.Option) *core.Pipeline {
	runner := sandbox.NewRunner(sandbox.WithTimeout(a.cfg.ScriptTimeout), sandbox.WithLogger(a.logger))
	base := []core.Option{
		core.WithLogger(a.logger),
		core.WithRunner(runner),
	}
	return core.NewPipeline(tools.NewHTTPTool(a.cfg.Timeout), append(base, opts...)...)
}

// loadEnvs loads envName, or the configured default when envName is empty.
// A missing default environment is not an error.
func (a *app) loadEnvs(envName string) (string, sandbox.Envs, error) {
	if envName != "" {
		envs, err := a.workspace.LoadEnvs(envName)
		return envName, envs, err
	}
	envs, err := a.workspace.LoadEnvs(a.cfg.DefaultEnv)
	if tools.IsNotFound(err) {
		a.logger.Debug("default environment not found", "env", a.cfg.DefaultEnv)
		envs, err = a.workspace.LoadEnvs("")
		return "", envs, err
	}
	return a.cfg.DefaultEnv, envs, err
}

// progress prints pipeline events that the user should see while a request
// runs.
func progress(ev core.RunEvent) {
	switch ev.Type {
	case "warning":
		fmt.Fprintln(os.Stderr, warnStyle.Render("! "+ev.Content))
	case "token":
		fmt.Fprintln(os.Stderr, dimStyle.Render("  fetching access token from "+ev.Content))
	case "request":
		target, _ := ev.Request.WireURL()
		fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("→ %s %s", strings.ToUpper(ev.Request.Method), target)))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
