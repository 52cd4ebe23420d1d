// Command chestvm checks, runs and hosts character scripts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psilLang/chestvm/pkg/engine"
	"github.com/psilLang/chestvm/pkg/log"
	"github.com/psilLang/chestvm/pkg/micro"
)

var (
	budget   = micro.DefaultBudget
	queries  = micro.DefaultQueryLimit
	steps    int
	logLevel = "info"
	debug    string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "chestvm",
		Short:         "Character script assembler and virtual machine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.InitLogger(os.Stderr, logLevel); err != nil {
				return err
			}
			log.EnableModules(debug)
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.DurationVar(&budget, "budget", micro.DefaultBudget, "Wall clock budget per run (<= 0 = default)")
	pf.IntVar(&queries, "queries", micro.DefaultQueryLimit, "Nearest chest/character queries per run (<= 0 = default)")
	pf.IntVar(&steps, "steps", 0, "Instruction budget per run (0 = unlimited)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, crit)")
	pf.StringVar(&debug, "debug", "", "Modules to log at debug level (asm,vm,engine,sched or all)")

	rootCmd.AddCommand(checkCmd(), disasmCmd(), runCmd(), thinkCmd(), replCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEngine() *engine.Engine {
	return engine.New(engine.Config{
		Budget:     budget,
		QueryLimit: queries,
		StepLimit:  steps,
	})
}

func readScript(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
