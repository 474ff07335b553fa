package main

import (
	"fmt"
	"os"

	"github.com/ChuLiYu/flight-server/internal/cli"
)

func main() {
	rootCmd := cli.BuildCLI()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "錯誤: %v\n", err)
		os.Exit(1)
	}
}
