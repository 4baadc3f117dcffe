// Command workspacectl is a small CLI client for a running workspace
// process's HTTP control plane, mirroring the teacher's gasoline-cmd
// client: it speaks the same JSON-RPC tools/call envelope, just from a
// one-shot CLI invocation instead of an IDE/agent harness holding a
// stdio pipe open.
//
// Usage:
//
//	workspacectl <tool> <action> [key=value ...] [--port N]
//
// Tools: agent, rules, audit, video — the same four surfaces the MCP
// server exposes. Example:
//
//	workspacectl rules stats
//	workspacectl audit block agent_id=a1 limit=20
//	workspacectl agent list
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultControlPort = 8765

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	port := defaultControlPort
	var positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--port" && i+1 < len(args) {
			if p, err := strconv.Atoi(args[i+1]); err == nil {
				port = p
			}
			i++
			continue
		}
		positional = append(positional, args[i])
	}

	if len(positional) < 2 {
		fmt.Fprintln(os.Stderr, "usage: workspacectl <tool> <action> [key=value ...] [--port N]")
		return 2
	}
	tool, action := positional[0], positional[1]

	arguments := map[string]any{"action": action}
	for _, kv := range positional[2:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "ignoring malformed argument %q (want key=value)\n", kv)
			continue
		}
		arguments[k] = coerce(v)
	}

	client := NewClient(port)
	result, err := client.CallTool(tool, arguments)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	for _, block := range result.Content {
		fmt.Println(block.Text)
	}
	if result.IsError {
		return 1
	}
	return 0
}

// coerce turns a CLI string value into an int, float, bool, or leaves
// it as a string — arguments like action take bare identifiers, but
// numeric fields like limit/slot should decode as JSON numbers.
func coerce(v string) any {
	if v == "true" {
		return true
	}
	if v == "false" {
		return false
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
