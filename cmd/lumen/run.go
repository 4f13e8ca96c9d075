package main

import (
	"fmt"
	"os"

	"github.com/lumenlisp/lumen/jit"
	"github.com/lumenlisp/lumen/lumen"
	"github.com/spf13/cobra"
)

var runExpression bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run lumen source",
	Long:  `Run lumen source code supplied via the command line or one or more files.`,
	Run: func(cmd *cobra.Command, args []string) {
		applyColorFlag()

		s := lumen.NewState(nil)
		s.SetJITTier(jit.NewCompiler())
		cleanup := setupProfiler(s)
		defer cleanup()
		defer s.Shutdown()

		exprs, err := runReadExpressions(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		for i, src := range exprs {
			name := args[i]
			if runExpression {
				name = "<expr>"
			}
			result, lerr := s.RunSource(src, name, s.Global)
			if lerr != nil {
				s.WriteTrace(os.Stderr, lerr)
				os.Exit(1)
			}
			if runExpression {
				fmt.Println(s.ToString(result))
			}
		}
	},
}

func runReadExpressions(args []string) ([]string, error) {
	exprs := make([]string, len(args))
	if runExpression {
		copy(exprs, args)
		return exprs, nil
	}
	for i, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		exprs[i] = string(b)
	}
	return exprs, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runExpression, "expression", "e", false,
		"Interpret arguments as lumen expressions")
}
