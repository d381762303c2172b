package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "check":
		if err := runCheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("pgsess — PostgreSQL session layer connectivity tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pgsess check        Probe connectivity, session settings, and keyword discovery")
	fmt.Println("  pgsess --help       Show this help message")
}
