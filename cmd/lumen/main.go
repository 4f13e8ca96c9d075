// Command lumen is lumen's CLI: run a source file, evaluate an expression,
// or start an interactive REPL.
package main

func main() {
	Execute()
}
