// Command vulnstats aggregates vulnerability statistics from app scan results.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/vuln-stats/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
