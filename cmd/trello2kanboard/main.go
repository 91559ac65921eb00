package main

import (
	"fmt"
	"os"

	_ "time/tzdata"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
