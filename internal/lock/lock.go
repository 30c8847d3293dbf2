// Package lock provides exclusive locks on quote ids and on the bilingual
// group sequence. Keys are always acquired in sorted order so that two
// callers locking overlapping sets cannot deadlock.
package lock

import (
	"context"
	"errors"
	"slices"
	"strconv"
)

// GroupsKey serializes the minting and merging of bilingual group ids.
const GroupsKey = "groups"

var ErrLockTimeout = errors.New("timed out waiting for lock")

// Unlock releases every key taken by one Lock call. It is safe to call more
// than once.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, keys ...string) (Unlock, error)
}

func QuoteKey(id uint) string {
	return "quote:" + strconv.FormatUint(uint64(id), 10)
}

func QuoteKeys(ids ...uint) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, QuoteKey(id))
	}
	return keys
}

func sortKeys(keys []string) []string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
