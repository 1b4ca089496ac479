// Atlas - code-structure diagram engine.
//
// Atlas turns symbol records and source text into validated Mermaid
// diagram documents, optionally fused with dynamic trace heat data.
package main

import (
	"fmt"
	"os"

	"github.com/codeatlas/atlas-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
