// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"

	"github.com/go-edhoc/edhoc-go"
)

var (
	debug    bool
	logLevel slog.LevelVar
)

var rootCmd = &cobra.Command{
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Use:   "edhoc-demo",
	Short: "Drive and inspect EDHOC handshakes from the command line",
	Long: `edhoc-demo exercises the edhoc-go engine: running a loopback
Initiator/Responder handshake from hex-encoded credentials, printing the
derived exporter values, or replaying the protocol's published test
vectors.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logLevel.Set(slog.LevelDebug)
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	handler := devlog.NewHandler(os.Stdout, &devlog.Options{Level: &logLevel})
	slog.SetDefault(slog.New(handler))
	edhoc.SetLogger(slog.Default())

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print debug-level transition logs")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}
