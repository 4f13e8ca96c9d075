package main

import (
	"os"
	"path/filepath"

	"github.com/lumenlisp/lumen/repl"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive lumen REPL",
	Long: `Start an interactive read-eval-print loop for lumen.

Line editing and command history (saved to $HOME/.lumen_history) are
supported via readline. Use Ctrl-D to exit; Ctrl-C discards the form being
typed and keeps the session open.

Example REPL session:
  lumen> (+ 1 2)
  3
  lumen> (set square (fn (x) (* x x)))
  #<function>
  lumen> (square 5)
  25`,
	Run: func(cmd *cobra.Command, args []string) {
		applyColorFlag()
		repl.Run(filepath.Base(os.Args[0]) + "> ")
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
