package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const defaultEndpoint = "http://127.0.0.1:8480"

type command struct {
	name  string
	usage string
	run   func(c *client, args []string, stdout, stderr io.Writer) int
}

var commands = []command{
	{"keygen", "generate a key pair and print its address", runKeygen},
	{"evidence-cid", "compute the CID of a local file or string", runEvidenceCID},
	{"register-mint", "register a token mint", runRegisterMint},
	{"mint", "issue tokens signed by the mint authority", runMint},
	{"transfer", "move tokens between owners", runTransfer},
	{"balance", "show an owner's balance of a token", runBalance},
	{"create-court", "register a court", runCreateCourt},
	{"court", "show a court by name or address", runCourt},
	{"next-index", "show the counter the next dispute will use", runNextIndex},
	{"init-dispute", "open a dispute under a court", runInitDispute},
	{"dispute", "show a dispute by address, or by court and index", runDispute},
	{"phase", "show the current phase of a dispute", runPhase},
	{"ballots", "list the ballots of a dispute", runBallots},
	{"record", "show a voter record", runRecord},
	{"bind", "stake into a party slot", runBind},
	{"evidence", "attach an evidence reference", runEvidence},
	{"vote", "cast a ballot", runVote},
	{"resolve", "settle a dispute after voting closes", runResolve},
	{"root", "show the committed state root", runRoot},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	endpoint := strings.TrimSpace(os.Getenv("AGORA_RPC_URL"))
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	args, endpoint, err := applyGlobalFlags(args, endpoint)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}
	c := newClient(endpoint)
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(c, args[1:], stdout, stderr)
		}
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
	printUsage(stderr)
	return 1
}

// applyGlobalFlags strips --rpc ahead of the subcommand.
func applyGlobalFlags(args []string, endpoint string) ([]string, string, error) {
	for len(args) > 0 {
		arg := args[0]
		switch {
		case arg == "--rpc" || arg == "-rpc":
			if len(args) < 2 {
				return nil, endpoint, fmt.Errorf("--rpc requires a URL")
			}
			endpoint = args[1]
			args = args[2:]
		case strings.HasPrefix(arg, "--rpc="):
			endpoint = strings.TrimPrefix(arg, "--rpc=")
			args = args[1:]
		default:
			return args, strings.TrimRight(endpoint, "/"), nil
		}
	}
	return args, strings.TrimRight(endpoint, "/"), nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: court-cli [--rpc URL] <command> [flags]")
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", cmd.name, cmd.usage)
	}
}
