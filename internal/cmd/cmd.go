package cmd

import (
	"log/slog"
	"time"

	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clambin/homehub/internal/cmd/rules"
	"github.com/clambin/homehub/internal/cmd/serve"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "homehub",
		Short: "Home automation rule engine",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charmer.SetJSONLogger(cmd, viper.GetBool("debug"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&serve.Cmd, &rules.Cmd)
}

var args = charmer.Arguments{
	"debug":         charmer.Argument{Default: false, Help: "Log debug messages"},
	"devices.file":  charmer.Argument{Default: "devices.yaml", Help: "Device catalog file"},
	"store.path":    charmer.Argument{Default: "homehub.db", Help: "Rule database file"},
	"tick.interval": charmer.Argument{Default: time.Second, Help: "Time evaluation interval"},
	"exporter.addr": charmer.Argument{Default: ":9090", Help: "Address of Prometheus exporter"},
	"health.addr":   charmer.Argument{Default: ":8080", Help: "Address of /health endpoint"},
	"slack.token":   charmer.Argument{Default: "", Help: "Slack token for rule notifications"},
	"slack.channel": charmer.Argument{Default: "", Help: "Slack channel for rule notifications"},
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/homehub/")
		viper.AddConfigPath("$HOME/.homehub")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := charmer.SetDefaults(viper.GetViper(), args); err != nil {
		panic("failed to set viper defaults: " + err.Error())
	}

	viper.SetEnvPrefix("HOMEHUB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Warn("no config file found, using defaults", "err", err)
	}
}
