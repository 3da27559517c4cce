package cmds

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the coco command tree. Every flag is also settable via
// a COCO_ environment variable (dashes become underscores).
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "coco",
		Short:        "Interactive terminal agent with confirmation-gated tools",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return initLogging(viper.GetString("log-level"))
		},
	}

	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	viper.SetEnvPrefix("COCO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(NewChatCmd(), NewConfigCmd())
	return root
}

func initLogging(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return errors.Wrapf(err, "parse log level %q", level)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl)
	return nil
}
