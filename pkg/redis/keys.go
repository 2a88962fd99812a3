package redis

import "strings"

// Keyspace prefixes every key this service writes so several environments can share a
// Redis instance.
type Keyspace string

const DefaultKeyspace Keyspace = "bz"

func (k Keyspace) join(parts ...string) string {
	out := make([]string, 0, len(parts)+1)
	if k != "" {
		out = append(out, string(k))
	}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}

func (k Keyspace) Idempotency(scope, id string) string { return k.join("idem", scope, id) }
func (k Keyspace) RateLimit(scope, bucket string) string {
	return k.join("rl", scope, bucket)
}
func (k Keyspace) Lock(name string) string { return k.join("lock", name) }
func (k Keyspace) CheckoutSession(sessionID string) string {
	return k.join("checkout", "session", sessionID)
}
