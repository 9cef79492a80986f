package state

var (
	tokenMintPrefix    = []byte("token/mint/")
	tokenAccountPrefix = []byte("token/account/")
	courtPrefix        = []byte("court/court/")
	disputePrefix      = []byte("court/dispute/")
	ballotPrefix       = []byte("court/ballot/")
	ballotIndexPrefix  = []byte("court/ballots/")
	recordPrefix       = []byte("court/record/")
)

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
