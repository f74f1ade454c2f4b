package defs

import (
	"slices"
	"strconv"

	"fortio.org/safecast"
)

// ObjectID identifies one definition inside one capture session. Zero is
// never allocated.
type ObjectID uint32

const NoID ObjectID = 0

func (id ObjectID) String() string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// IDFromInt converts a count or index into an ObjectID, failing on overflow.
func IDFromInt[T safecast.Integer](n T) (ObjectID, error) {
	return safecast.Conv[ObjectID](n)
}

// SortedKeys returns the keys of a chain or member map in a stable order.
func SortedKeys(m map[string]ObjectID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedValues(m map[string]ObjectID) []ObjectID {
	out := make([]ObjectID, 0, len(m))
	for _, k := range SortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}
