package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	colorFlag string
	otelFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "lumen — a NaN-boxed, tiered Lisp interpreter",
	Long: `lumen is an embedded Lisp interpreter with a tree-walking evaluator and
an optional x86-64 JIT tier for hot numeric functions.

Getting started:
  lumen run file.lumen          Run a lumen source file
  lumen run -e '(+ 1 2)'        Evaluate an expression
  lumen repl                    Start an interactive REPL

Language overview:
  Functions are values: (set square (fn (x) (* x x))) defines square, called
  as (square 5). (quote x), (quasiquote x)/(unquote x) use the ' ` + "`" + `/, abbreviations.
  Errors are raised with (error "message"); there is no form that catches them.
  A function whose call site always passes numbers is eligible, after a few
  calls, for JIT compilation to native code on amd64; this never changes what
  a program computes, only how fast it runs.`,
}

// Execute runs the root command. It is the sole entry point main.main calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lumen.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		`Control colored diagnostics: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().BoolVar(&otelFlag, "otel", false,
		"Enable OpenTelemetry span annotation for function applications")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".lumen")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func applyColorFlag() {
	switch colorFlag {
	case "always":
		os.Setenv("LUMEN_COLOR", "1") //nolint:errcheck // best-effort env propagation
	case "never":
		os.Unsetenv("LUMEN_COLOR") //nolint:errcheck // best-effort env propagation
	}
}
