package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultProbeTimeoutSecs = 10
	defaultPortTimeoutSecs  = 1
	defaultDeadlineSecs     = 120
	defaultPortWorkers      = 20
	defaultRateLimit        = 0
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Scan ScanRuntimeConfig
}

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	TimeoutSecs     int
	PortTimeoutSecs int
	DeadlineSecs    int
	Workers         int
	RateLimit       int
	Ports           []int
}

type scanOverrides struct {
	TimeoutSecs  *int
	DeadlineSecs *int
	Workers      *int
	RateLimit    *int
	Output       string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Scan: ScanRuntimeConfig{
			TimeoutSecs:     defaultProbeTimeoutSecs,
			PortTimeoutSecs: defaultPortTimeoutSecs,
			DeadlineSecs:    defaultDeadlineSecs,
			Workers:         defaultPortWorkers,
			RateLimit:       defaultRateLimit,
		},
	}
}

func loadScanOverrides() scanOverrides {
	overrides := scanOverrides{}

	if viper.IsSet("scan.timeout_secs") {
		val := viper.GetInt("scan.timeout_secs")
		overrides.TimeoutSecs = &val
	}

	if viper.IsSet("scan.deadline_secs") {
		val := viper.GetInt("scan.deadline_secs")
		overrides.DeadlineSecs = &val
	}

	if viper.IsSet("scan.workers") {
		val := viper.GetInt("scan.workers")
		overrides.Workers = &val
	}

	if viper.IsSet("scan.rate_limit") {
		val := viper.GetInt("scan.rate_limit")
		overrides.RateLimit = &val
	}

	if viper.IsSet("scan.output") {
		overrides.Output = viper.GetString("scan.output")
	}

	return overrides
}

// applyConfigDefaults merges config file values into the runtime config
// when the user did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadScanOverrides()

	if overrides.TimeoutSecs != nil {
		applyIntDefault(scanCmd.Flags(), "timeout", *overrides.TimeoutSecs, func(v int) {
			cliConfig.Scan.TimeoutSecs = v
		})
	}

	if overrides.DeadlineSecs != nil {
		applyIntDefault(scanCmd.Flags(), "deadline", *overrides.DeadlineSecs, func(v int) {
			cliConfig.Scan.DeadlineSecs = v
		})
	}

	if overrides.Workers != nil {
		applyIntDefault(scanCmd.Flags(), "workers", *overrides.Workers, func(v int) {
			cliConfig.Scan.Workers = v
		})
	}

	if overrides.RateLimit != nil {
		applyIntDefault(scanCmd.Flags(), "rate-limit", *overrides.RateLimit, func(v int) {
			cliConfig.Scan.RateLimit = v
		})
	}

	if overrides.Output != "" {
		setStringFlagIfUnset(scanCmd.Flags(), "output", overrides.Output)
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
