// Root command for the bladeRF CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jenselo/bladeRF/internal/config"
	"github.com/jenselo/bladeRF/internal/logging"
	"github.com/jenselo/bladeRF/internal/paths"
	"github.com/jenselo/bladeRF/internal/shell"
	"github.com/jenselo/bladeRF/internal/state"
)

// version is the CLI release version.
const version = "1.0.0"

// Global flag values.
var (
	flagConfigDir   string
	flagDevice      string
	flagScript      string
	flagExec        string
	flagInteractive bool
	flagVerbosity   string
)

// exitCode is the process exit status set by the shell run.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "bladerf-cli",
	Short: "bladerf-cli is an interactive shell for bladeRF devices",
	Long: `bladerf-cli controls a bladeRF radio device through an interactive
shell. Commands may also come from scripts (run <file>) or a single
--exec line. With no device flag, open a device from inside the shell.`,
	Version: version,
	RunE:    runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.Flags().StringVarP(&flagDevice, "device", "d", "", "device identifier to open at startup")
	rootCmd.Flags().StringVarP(&flagScript, "script", "s", "", "script to execute")
	rootCmd.Flags().StringVarP(&flagExec, "exec", "e", "", "execute a single command line and exit")
	rootCmd.Flags().BoolVarP(&flagInteractive, "interactive", "i", false, "enter the interactive shell after --script")
	rootCmd.Flags().StringVarP(&flagVerbosity, "verbosity", "v", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if flagVerbosity != "" {
		level = flagVerbosity
	}
	log := logging.New(logging.ParseLevel(level))

	st := state.New(state.Options{
		MaxScriptDepth: cfg.ScriptMaxDepth,
		Logger:         log,
	})
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("shutdown", "err", cerr)
		}
	}()

	if flagDevice != "" {
		// A startup open failure is not fatal; the user can retry with
		// the open command.
		if oerr := st.OpenDevice(flagDevice); oerr != nil {
			log.Warn("could not open device", "identifier", flagDevice, "err", oerr)
		}
	}

	sh, err := shell.New(shell.Options{
		State:   st,
		Config:  cfg,
		Logger:  log,
		Version: version,
	})
	if err != nil {
		return err
	}

	switch {
	case flagExec != "":
		exitCode = sh.Exec(flagExec)
	case flagScript != "" && flagInteractive:
		if serr := st.Scripts().Push(flagScript); serr != nil {
			return fmt.Errorf("open script: %w", serr)
		}
		exitCode = sh.Run()
	case flagScript != "":
		exitCode = sh.RunScript(flagScript)
	default:
		exitCode = sh.Run()
	}
	return nil
}
