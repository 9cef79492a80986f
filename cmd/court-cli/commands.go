package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/IlliniBlockchain/agora-courts/rpc"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// required reports the first empty flag value by name.
func required(stderr io.Writer, values map[string]string) bool {
	for _, name := range sortedKeys(values) {
		if strings.TrimSpace(values[name]) == "" {
			fmt.Fprintf(stderr, "--%s is required\n", name)
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// finish prints a response or the error that replaced it.
func finish(raw json.RawMessage, err error, stdout, stderr io.Writer) int {
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := printJSON(stdout, raw); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		return 1
	}
	return 0
}

func esc(s string) string { return url.PathEscape(strings.TrimSpace(s)) }

func runRegisterMint(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("register-mint", stderr)
	symbol := fs.String("symbol", "", "token symbol")
	decimals := fs.Uint("decimals", 0, "display decimals")
	authority := fs.String("authority", "", "mint authority address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"symbol": *symbol, "authority": *authority}) {
		return 1
	}
	if *decimals > 255 {
		fmt.Fprintln(stderr, "--decimals must fit in a byte")
		return 1
	}
	raw, err := c.post("/v1/tokens/mints", rpc.RegisterMintRequest{
		Symbol: *symbol, Decimals: uint8(*decimals), Authority: *authority,
	})
	return finish(raw, err, stdout, stderr)
}

func runMint(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("mint", stderr)
	symbol := fs.String("symbol", "", "token symbol or mint address")
	authority := fs.String("authority", "", "mint authority address")
	owner := fs.String("to", "", "recipient address")
	amount := fs.Uint64("amount", 0, "amount in base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"symbol": *symbol, "authority": *authority, "to": *owner}) {
		return 1
	}
	raw, err := c.post("/v1/tokens/mint", rpc.MintToRequest{
		Symbol: *symbol, Authority: *authority, Owner: *owner, Amount: *amount,
	})
	return finish(raw, err, stdout, stderr)
}

func runTransfer(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("transfer", stderr)
	symbol := fs.String("symbol", "", "token symbol or mint address")
	from := fs.String("from", "", "sender address")
	to := fs.String("to", "", "recipient address")
	amount := fs.Uint64("amount", 0, "amount in base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"symbol": *symbol, "from": *from, "to": *to}) {
		return 1
	}
	raw, err := c.post("/v1/tokens/transfer", rpc.TransferRequest{
		Symbol: *symbol, From: *from, To: *to, Amount: *amount,
	})
	return finish(raw, err, stdout, stderr)
}

func runBalance(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("balance", stderr)
	owner := fs.String("owner", "", "owner address")
	symbol := fs.String("symbol", "", "token symbol or mint address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"owner": *owner, "symbol": *symbol}) {
		return 1
	}
	raw, err := c.get("/v1/tokens/balances/" + esc(*owner) + "/" + esc(*symbol))
	return finish(raw, err, stdout, stderr)
}

func runCreateCourt(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("create-court", stderr)
	name := fs.String("name", "", "court name")
	repMint := fs.String("rep", "", "reputation token symbol or mint address")
	payMint := fs.String("pay", "", "payment token symbol or mint address")
	protocol := fs.String("protocol", "", "protocol fee recipient")
	authority := fs.String("authority", "", "optional court authority")
	maxVotes := fs.Uint64("max-votes", 0, "ballot cap per dispute (0 means unlimited)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"name": *name, "rep": *repMint, "pay": *payMint, "protocol": *protocol}) {
		return 1
	}
	raw, err := c.post("/v1/courts/", rpc.CreateCourtRequest{
		Name:            *name,
		RepMint:         *repMint,
		PayMint:         *payMint,
		Protocol:        *protocol,
		Authority:       *authority,
		MaxDisputeVotes: *maxVotes,
	})
	return finish(raw, err, stdout, stderr)
}

func runCourt(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("court", stderr)
	name := fs.String("name", "", "court name or address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"name": *name}) {
		return 1
	}
	raw, err := c.get("/v1/courts/" + esc(*name))
	return finish(raw, err, stdout, stderr)
}

func runNextIndex(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("next-index", stderr)
	name := fs.String("court", "", "court name or address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"court": *name}) {
		return 1
	}
	raw, err := c.get("/v1/courts/" + esc(*name) + "/next-index")
	return finish(raw, err, stdout, stderr)
}

func runInitDispute(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("init-dispute", stderr)
	courtName := fs.String("court", "", "court name or address")
	payer := fs.String("payer", "", "account funding the protocol reward")
	partyA := fs.String("party-a", "", "reserve slot A for this address")
	partyB := fs.String("party-b", "", "reserve slot B for this address")
	mintAuthority := fs.String("mint-authority", "", "reputation mint authority, required when --protocol-rep is set")
	var cfg rpc.DisputeConfigBody
	fs.Int64Var(&cfg.GraceEndsAt, "grace-ends", 0, "unix time the grace period ends")
	fs.Int64Var(&cfg.InitCasesEndsAt, "cases-end", 0, "unix time case submission ends")
	fs.Int64Var(&cfg.EndsAt, "ends", 0, "unix time voting ends")
	fs.Uint64Var(&cfg.VoterRepRequired, "voter-rep-required", 0, "reputation a voter must hold")
	fs.Uint64Var(&cfg.VoterRepCost, "voter-rep-cost", 0, "reputation charged per ballot")
	fs.Uint64Var(&cfg.RepCost, "rep-cost", 0, "reputation a party stakes")
	fs.Uint64Var(&cfg.PayCost, "pay-cost", 0, "payment a party stakes")
	fs.Uint64Var(&cfg.MinVotes, "min-votes", 0, "ballots needed for a decision")
	fs.Uint64Var(&cfg.ProtocolPay, "protocol-pay", 0, "payment reward for the protocol")
	fs.Uint64Var(&cfg.ProtocolRep, "protocol-rep", 0, "reputation reward minted for the protocol")
	fs.BoolVar(&cfg.AllowLateBinding, "late-binding", false, "let parties stake after the grace period")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"court": *courtName, "payer": *payer}) {
		return 1
	}
	raw, err := c.post("/v1/disputes/", rpc.InitializeDisputeRequest{
		Court:         *courtName,
		Config:        cfg,
		PartyA:        *partyA,
		PartyB:        *partyB,
		Payer:         *payer,
		MintAuthority: *mintAuthority,
	})
	return finish(raw, err, stdout, stderr)
}

func runDispute(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("dispute", stderr)
	address := fs.String("address", "", "dispute address")
	courtName := fs.String("court", "", "court name or address, used with --index")
	index := fs.Int64("index", -1, "dispute index within --court")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	switch {
	case *address != "":
		raw, err := c.get("/v1/disputes/" + esc(*address))
		return finish(raw, err, stdout, stderr)
	case *courtName != "" && *index >= 0:
		raw, err := c.get(fmt.Sprintf("/v1/courts/%s/disputes/%d", esc(*courtName), *index))
		return finish(raw, err, stdout, stderr)
	default:
		fmt.Fprintln(stderr, "either --address or --court with --index is required")
		return 1
	}
}

// disputeQuery covers the commands addressed by dispute alone.
func disputeQuery(name, suffix string) func(*client, []string, io.Writer, io.Writer) int {
	return func(c *client, args []string, stdout, stderr io.Writer) int {
		fs := newFlagSet(name, stderr)
		address := fs.String("dispute", "", "dispute address")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		if !required(stderr, map[string]string{"dispute": *address}) {
			return 1
		}
		var (
			raw json.RawMessage
			err error
		)
		if suffix == "/resolve" {
			raw, err = c.post("/v1/disputes/"+esc(*address)+suffix, nil)
		} else {
			raw, err = c.get("/v1/disputes/" + esc(*address) + suffix)
		}
		return finish(raw, err, stdout, stderr)
	}
}

var (
	runPhase   = disputeQuery("phase", "/phase")
	runBallots = disputeQuery("ballots", "/ballots")
	runResolve = disputeQuery("resolve", "/resolve")
)

func runRecord(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("record", stderr)
	courtName := fs.String("court", "", "court name or address")
	user := fs.String("user", "", "voter address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"court": *courtName, "user": *user}) {
		return 1
	}
	raw, err := c.get("/v1/courts/" + esc(*courtName) + "/records/" + esc(*user))
	return finish(raw, err, stdout, stderr)
}

func parseSlot(value string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "a", "0":
		return 0, nil
	case "b", "1":
		return 1, nil
	default:
		return 0, fmt.Errorf("invalid slot %q: expected a or b", value)
	}
}

func runBind(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("bind", stderr)
	address := fs.String("dispute", "", "dispute address")
	slot := fs.String("slot", "", "party slot (a or b)")
	user := fs.String("user", "", "party address")
	repStake := fs.Uint64("rep", 0, "reputation to stake")
	payStake := fs.Uint64("pay", 0, "payment to stake")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"dispute": *address, "slot": *slot, "user": *user}) {
		return 1
	}
	idx, err := parseSlot(*slot)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	raw, err := c.post("/v1/disputes/"+esc(*address)+"/parties", rpc.BindPartyRequest{
		Slot: idx, User: *user, RepStake: *repStake, PayStake: *payStake,
	})
	return finish(raw, err, stdout, stderr)
}

func runEvidence(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("evidence", stderr)
	address := fs.String("dispute", "", "dispute address")
	party := fs.String("party", "", "submitting party address")
	ref := fs.String("ref", "", "evidence CID")
	file := fs.String("file", "", "hash this file and submit its CID instead of --ref")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *file != "" {
		var out strings.Builder
		if code := runEvidenceCID(c, []string{"--file", *file}, &out, stderr); code != 0 {
			return code
		}
		*ref = strings.TrimSpace(out.String())
	}
	if !required(stderr, map[string]string{"dispute": *address, "party": *party, "ref": *ref}) {
		return 1
	}
	raw, err := c.post("/v1/disputes/"+esc(*address)+"/evidence", rpc.EvidenceRequest{Party: *party, Ref: *ref})
	return finish(raw, err, stdout, stderr)
}

func runVote(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("vote", stderr)
	address := fs.String("dispute", "", "dispute address")
	voter := fs.String("voter", "", "voter address")
	side := fs.String("side", "", "side to back (a or b)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !required(stderr, map[string]string{"dispute": *address, "voter": *voter, "side": *side}) {
		return 1
	}
	raw, err := c.post("/v1/disputes/"+esc(*address)+"/votes", rpc.VoteRequest{Voter: *voter, Side: *side})
	return finish(raw, err, stdout, stderr)
}

func runRoot(c *client, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("root", stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	raw, err := c.get("/v1/state/root")
	return finish(raw, err, stdout, stderr)
}
