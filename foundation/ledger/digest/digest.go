// Package digest implements the hashing contract that links activity records
// into a tamper evident chain. The digest of a record covers the predecessor
// digest plus the record's own fields, so altering any committed record breaks
// every record after it.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"
)

// ZeroHash represents a hash code of zeros. It is the predecessor digest of
// the very first record committed to the ledger.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// RecordedAtFormat is the layout used to render commit times. The rendered
// string is hashed into the record, which makes this layout part of the
// digest contract. It can't change without invalidating every digest already
// committed.
const RecordedAtFormat = time.RFC3339Nano

// Hash returns the digest for a record given its predecessor digest and the
// record's own fields. The emission value is rendered with FormatEmission so
// the same value always hashes the same way.
func Hash(previousDigest string, owner string, activityKind string, emission float64, recordedAt string) string {
	var sb strings.Builder
	sb.WriteString(previousDigest)
	sb.WriteString(owner)
	sb.WriteString(activityKind)
	sb.WriteString(FormatEmission(emission))
	sb.WriteString(recordedAt)

	hash := sha256.Sum256([]byte(sb.String()))

	return hex.EncodeToString(hash[:])
}

// FormatEmission renders an emission value to the single canonical decimal
// form used for hashing: the shortest plain decimal string that parses back
// to the same float64 value. 4.87 renders as "4.87", 1.20 as "1.2" and
// 9.00 as "9".
func FormatEmission(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// IsCanonical reports whether an emission value has a defined canonical
// form. NaN and the infinities do not and must be rejected before hashing.
func IsCanonical(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// Timestamp renders a commit time to the string form that gets hashed and
// stored with the record.
func Timestamp(t time.Time) string {
	return t.UTC().Format(RecordedAtFormat)
}
