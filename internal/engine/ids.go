package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/blocklens/blocklens/internal/geometry"
)

// idLen is the number of hex characters kept from the content hash.
// 16 chars (64 bits) is plenty for per-document uniqueness while
// staying readable in URLs and logs.
const idLen = 16

// GroupID derives a deterministic id for a derived group from its
// structural inputs. Member order does not matter: ids are sorted
// before hashing, so repeated computation on identical input yields
// identical ids regardless of traversal order.
func GroupID(page int, label string, memberIDs []string) string {
	ids := make([]string, len(memberIDs))
	copy(ids, memberIDs)
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s", page, label, strings.Join(ids, ","))
	return hex.EncodeToString(h.Sum(nil))[:idLen]
}

// ReferenceID derives a deterministic id for a reference region from
// its page and bbox. Coordinates are rounded to nine decimals so that
// float formatting noise cannot split identical regions.
func ReferenceID(page int, b geometry.Rect) string {
	h := sha256.New()
	fmt.Fprintf(h, "ref|%d|%.9f|%.9f|%.9f|%.9f", page, b.X, b.Y, b.W, b.H)
	return hex.EncodeToString(h.Sum(nil))[:idLen]
}
