package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	mc "github.com/multiformats/go-multicodec"
	mh "github.com/multiformats/go-multihash"

	"github.com/IlliniBlockchain/agora-courts/crypto"
)

func runKeygen(_ *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "write the hex private key to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error generating key: %v\n", err)
		return 1
	}
	encoded := hex.EncodeToString(key.Bytes())
	fmt.Fprintf(stdout, "address: %s\n", key.PubKey().Address().String())
	if *out == "" {
		fmt.Fprintf(stdout, "private key: %s\n", encoded)
		return 0
	}
	if err := os.WriteFile(*out, []byte(encoded+"\n"), 0o600); err != nil {
		fmt.Fprintf(stderr, "Error writing key file: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "private key written to %s\n", *out)
	return 0
}

// evidenceCID hashes content into a raw-codec CIDv1, or a dag-pb CIDv0 when
// v0 is set.
func evidenceCID(data []byte, v0 bool) (cid.Cid, error) {
	if v0 {
		digest, err := mh.Sum(data, mh.SHA2_256, -1)
		if err != nil {
			return cid.Undef, err
		}
		return cid.NewCidV0(digest), nil
	}
	pref := cid.Prefix{Version: 1, Codec: uint64(mc.Raw), MhType: mh.SHA2_256, MhLength: -1}
	return pref.Sum(data)
}

func runEvidenceCID(_ *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evidence-cid", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "file to hash")
	text := fs.String("text", "", "literal text to hash")
	v0 := fs.Bool("v0", false, "emit a CIDv0 (dag-pb, base58) reference")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if (*file == "") == (*text == "") {
		fmt.Fprintln(stderr, "exactly one of --file or --text is required")
		return 1
	}
	data := []byte(*text)
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", *file, err)
			return 1
		}
		data = raw
	}
	c, err := evidenceCID(data, *v0)
	if err != nil {
		fmt.Fprintf(stderr, "Error computing CID: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, c.String())
	return 0
}
