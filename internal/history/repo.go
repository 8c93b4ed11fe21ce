package history

import "context"

// Repo is an append-only, capped interaction log.
type Repo interface {
	Append(ctx context.Context, entry Entry) error
	// Recent returns up to limit entries for the session, newest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > Limit {
		return Limit
	}
	return limit
}

// newestFirst returns the last n entries of an oldest-first slice in reverse order.
func newestFirst(entries []Entry, n int) []Entry {
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}
