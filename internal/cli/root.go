// Package cli implements the hssp command line tool.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/logicossoftware/go-hssp"
	"github.com/logicossoftware/go-hssp/internal/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the configuration shared by all subcommands. Settings resolve
// from flags, then HSSP_* environment variables, then the config file.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "hssp",
		Short:         "Create, inspect and extract HSSP archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./hssp.yaml or $HOME/.hssp/hssp.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("password", "", "archive password")
	_ = a.v.BindPFlag("debug", flags.Lookup("debug"))
	_ = a.v.BindPFlag("password", flags.Lookup("password"))

	cmd.AddCommand(
		newPackCommand(a),
		newUnpackCommand(a),
		newJoinCommand(a),
		newInspectCommand(a),
		newVerifyCommand(a),
	)
	return cmd
}

func (a *app) loadConfig() error {
	v := a.v
	v.SetEnvPrefix("HSSP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if a.cfgFile != "" {
		if _, err := os.Stat(a.cfgFile); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("hssp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.hssp")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if v.GetBool("debug") {
		log.SetDebugMode()
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("configuration loaded")
	return nil
}

func (a *app) readOptions() []hssp.ReadOption {
	return []hssp.ReadOption{
		hssp.WithReadPassword(a.v.GetString("password")),
		hssp.WithReadLogger(log.Logger),
	}
}

func (a *app) writeOptions() []hssp.WriteOption {
	return []hssp.WriteOption{
		hssp.WithVersion(hssp.Version(a.v.GetInt("version"))),
		hssp.WithPassword(a.v.GetString("password")),
		hssp.WithCompression(a.v.GetString("compression")),
		hssp.WithCompressionLevel(a.v.GetInt("level")),
		hssp.WithComment(a.v.GetString("comment")),
		hssp.WithWriteLogger(log.Logger),
	}
}
