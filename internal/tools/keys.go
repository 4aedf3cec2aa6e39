package tools

import "encoding/binary"

// Key family prefixes within the tools collection.
const (
	prefixCall = 'c'
	prefixStat = 's'
	prefixTime = 't'
)

// callKey is 'c' + big-endian id. Big-endian keeps numeric order equal to
// byte order, so an id-range scan walks calls in allocation order.
func callKey(id int64) []byte {
	k := make([]byte, 9)
	k[0] = prefixCall
	binary.BigEndian.PutUint64(k[1:], uint64(id))
	return k
}

// statKey is 's' + tool name; a prefix scan yields stats sorted by name.
func statKey(name string) []byte {
	return append([]byte{prefixStat}, name...)
}

// timeKey is 't' + big-endian start millis + big-endian id. The id suffix
// disambiguates calls started in the same millisecond while preserving
// allocation order.
func timeKey(startMillis, id int64) []byte {
	k := make([]byte, 17)
	k[0] = prefixTime
	binary.BigEndian.PutUint64(k[1:9], uint64(startMillis))
	binary.BigEndian.PutUint64(k[9:], uint64(id))
	return k
}

// timeKeyID extracts the call id from a time-index key.
func timeKeyID(k []byte) int64 {
	return int64(binary.BigEndian.Uint64(k[9:]))
}

// familyEnd returns the exclusive upper bound of a one-byte key family.
func familyEnd(prefix byte) []byte {
	return []byte{prefix + 1}
}
