// keyrun - scripted keyboard and mouse automation.
// Loads timed input scripts from a text file and executes them against the
// OS input queue.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"keyrun/internal/api"
	"keyrun/internal/config"
	"keyrun/internal/engine"
	"keyrun/internal/input"
	"keyrun/internal/observability"
	"keyrun/internal/script"
	"keyrun/internal/tray"
)

var version = "0.1.0"

var (
	cfgFile    string
	scriptFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "keyrun",
	Short:         "keyrun runs timed keyboard and mouse automation scripts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if scriptFile != "" {
			cfg.Scripts.File = scriptFile
		}
		observability.Initialize(cfg.Logger)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scripts in the script file",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := script.Load(cfg.Scripts.File)
		if err != nil {
			return err
		}
		for _, name := range table.Names() {
			fmt.Printf("%s (%d commands)\n", name, len(table.Get(name).Commands))
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse the script file and statically validate every command",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := script.Load(cfg.Scripts.File)
		if err != nil {
			return err
		}
		// Lint needs no backend; nothing is executed.
		exec := engine.New(table, nil, observability.Logger())
		problems := exec.Lint()
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d invalid command(s) in %s", len(problems), cfg.Scripts.File)
		}
		fmt.Printf("%s: %d script(s) OK\n", cfg.Scripts.File, len(table))
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Execute one script from the script file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, err := newExecutor()
		if err != nil {
			return err
		}
		return exec.Execute(args[0])
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the remote trigger API",
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, err := newExecutor()
		if err != nil {
			return err
		}
		server := api.NewServer(exec, cfg.API.Token, observability.Logger().Named("api"))
		// Stream execution events to WebSocket clients.
		exec.SetEventSink(server.Broadcast)
		return server.Start(cfg.API.Port)
	},
}

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Show the loaded scripts in a system tray menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, err := newExecutor()
		if err != nil {
			return err
		}
		logger := observability.Logger().Named("tray")

		t := tray.New("keyrun - script runner")
		for _, name := range exec.Names() {
			name := name
			t.AddMenuItem(name, func() {
				logger.Info("running script from tray", zap.String("script", name))
				if err := exec.Execute(name); err != nil {
					logger.Error("script run failed", zap.String("script", name), zap.Error(err))
				}
			})
		}
		t.AddSeparator()
		t.AddMenuItem("Quit", t.Stop)
		t.Run()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the keyrun version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("keyrun version %s\n", version)
	},
}

// newExecutor loads the script table and wires it to the platform input
// backend. Backend errors (unsupported OS) surface here, before any script
// can run.
func newExecutor() (*engine.Executor, error) {
	table, err := script.Load(cfg.Scripts.File)
	if err != nil {
		return nil, err
	}
	backend, err := input.New()
	if err != nil {
		return nil, err
	}
	return engine.New(table, backend, observability.Logger().Named("engine"),
		engine.WithKeyHold(time.Duration(cfg.Engine.KeyHoldMs)*time.Millisecond)), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./keyrun.yaml)")
	rootCmd.PersistentFlags().StringVarP(&scriptFile, "file", "f", "", "script file (overrides config)")
	rootCmd.AddCommand(listCmd, checkCmd, runCmd, serveCmd, trayCmd, versionCmd)
}

func main() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		observability.Logger().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
