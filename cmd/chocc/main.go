// Command chocc runs the C front end: logical lines, tokens or preprocessed
// output for one source file.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "chocc: %v\n", err)
		os.Exit(1)
	}
}
