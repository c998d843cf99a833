// Command ardentid runs the credential and verification HTTP service and a
// few operator utilities around it.
package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/ardentid/internal/config"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func (f *rootFlags) load() (*config.Config, error) {
	return config.Load(f.configPath, f.envFile)
}

func main() {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "ardentid",
		Short:         "Credential and verification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", envOr("ARDENTID_CONFIG", ""), "YAML config file (env ARDENTID_CONFIG)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newLoadtestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
