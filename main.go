package main

import (
	"fmt"
	"os"

	"supplier_leads_scraper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[X] %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
