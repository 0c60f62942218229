package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inferloop/dataforge/cmd/cli/commands"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "dataforge",
		Short: "Pipeline orchestration and data-quality CLI",
		Long: `dataforge drives CSV and S3 sources through schema inference,
field mapping, transformation, validation, and warehouse loading,
with data-quality scoring and full lineage on every run.`,
		Version: "0.1.0",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dataforge.yaml)")

	rootCmd.AddCommand(commands.NewRunCmd(&cfgFile))
	rootCmd.AddCommand(commands.NewProfileCmd(&cfgFile))
	rootCmd.AddCommand(commands.NewStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
