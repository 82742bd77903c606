package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dispatchsim/engine/internal/dispatcher"
)

// runConsole reads operator commands from stdin, one per line, and
// feeds them through the dispatcher. Lines are whitespace-tokenized:
// the first token is the command, the rest are arguments.
//
//	unit:assign 17-134 INC-2024-001 52.05 4.45
//	sim:status
func runConsole(d *dispatcher.Dispatcher) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "help" {
			printConsoleHelp(d)
			continue
		}

		fields := strings.Fields(line)
		result, err := d.Dispatch(dispatcher.Event{
			Command:   fields[0],
			Args:      fields[1:],
			Timestamp: time.Now(),
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if result != nil {
			fmt.Println(result)
		}
	}
	if err := scanner.Err(); err != nil {
		Logger.Error("Console input failed", "error", err)
	}
}

func printConsoleHelp(d *dispatcher.Dispatcher) {
	fmt.Println("commands:")
	for _, cmd := range d.Commands() {
		if cmd.Usage == "" {
			fmt.Printf("  %s\n", cmd.Name)
			continue
		}
		fmt.Printf("  %s %s\n", cmd.Name, cmd.Usage)
	}
}
