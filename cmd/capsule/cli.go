package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"capsule/internal/config"
	"capsule/internal/logging"
	"capsule/internal/observ"
	"capsule/internal/prof"
)

// cliState is shared by every subcommand of one invocation.
type cliState struct {
	cfg     config.Config
	cfgPath string
	log     zerolog.Logger
	quiet   bool
	timings bool
	timer   *observ.Timer
	cleanup []func()
}

var cli cliState

func setupCLI(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	cfgPath, err := flags.GetString("config")
	if err != nil {
		return err
	}
	cfg, path, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if raw, _ := flags.GetString("log-level"); raw != "" {
		parsed, ok := logging.ParseLevel(raw)
		if !ok {
			return fmt.Errorf("invalid --log-level %q", raw)
		}
		level = parsed
	}
	lcfg := logging.DefaultConfig(logging.ProfileRuntime)
	lcfg.Level = level
	logging.ApplyEnv(&lcfg)

	quiet, _ := flags.GetBool("quiet")
	timings, _ := flags.GetBool("timings")
	cli = cliState{cfg: cfg, cfgPath: path, log: logging.New(lcfg), quiet: quiet, timings: timings, timer: observ.NewTimer()}

	var popts prof.Options
	popts.CPU, _ = flags.GetString("cpuprofile")
	popts.Mem, _ = flags.GetString("memprofile")
	popts.Trace, _ = flags.GetString("runtime-trace")
	stopProf, err := prof.Start(popts)
	if err != nil {
		return fmt.Errorf("start profiling: %w", err)
	}
	cli.cleanup = append(cli.cleanup, func() {
		if err := stopProf(); err != nil {
			cli.log.Error().Err(err).Msg("stop profiling")
		}
	})

	stopTrace, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	cli.cleanup = append(cli.cleanup, stopTrace)
	if path != "" {
		cli.log.Debug().Str("path", path).Msg("loaded config")
	}
	return nil
}

func teardownCLI(cmd *cobra.Command, _ []string) error {
	for i := len(cli.cleanup) - 1; i >= 0; i-- {
		cli.cleanup[i]()
	}
	cli.cleanup = nil
	if cli.timings {
		fmt.Fprint(cmd.ErrOrStderr(), cli.timer.Summary())
	}
	return nil
}

// loadConfig reads an explicit path, or the nearest capsule.toml, or falls
// back to the defaults.
func loadConfig(explicit string) (config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.Load(explicit)
		return cfg, explicit, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", err
	}
	path, ok, err := config.Find(wd)
	if err != nil {
		return config.Config{}, "", err
	}
	if !ok {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}
