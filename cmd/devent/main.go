package main

import (
	"fmt"
	"os"

	"github.com/invisibility-inc/devent/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "devent:", err)
		os.Exit(1)
	}
}
