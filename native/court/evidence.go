package court

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

// NormalizeEvidenceRef parses an evidence reference as a content identifier
// and returns its canonical string form. Only the reference is stored; the
// content itself lives off-ledger.
func NormalizeEvidenceRef(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty reference", ErrInvalidEvidence)
	}
	c, err := cid.Decode(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEvidence, err)
	}
	if !c.Defined() {
		return "", fmt.Errorf("%w: undefined cid", ErrInvalidEvidence)
	}
	return c.String(), nil
}
