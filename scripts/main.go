package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/netbill/netbill/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "seed-settings",
		Description: "Store the default business settings, keeping values that already exist",
		Run:         internal.SeedSettings,
	},
	{
		Name:        "seed-demo",
		Description: "Create plans, customers and active subscriptions from a JSON file",
		Run:         internal.SeedDemoData,
	},
	{
		Name:        "run-billing",
		Description: "Run invoice generation and overdue processing once, outside the scheduler",
		Run:         internal.RunBilling,
	},
}

func main() {
	var (
		listCommands bool
		cmdName      string
		demoFile     string
		period       string
		today        string
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&demoFile, "demo-file", "", "Path to the demo data JSON file")
	flag.StringVar(&period, "period", "", "Billing period YYYY-MM for run-billing, current when empty")
	flag.StringVar(&today, "today", "", "Day YYYY-MM-DD for run-billing overdue processing, current when empty")

	flag.Parse()

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-20s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	// Set command-specific environment variables
	if demoFile != "" {
		os.Setenv("DEMO_FILE", demoFile)
	}
	if period != "" {
		os.Setenv("BILLING_PERIOD", period)
	}
	if today != "" {
		os.Setenv("BILLING_TODAY", today)
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Error running command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}
