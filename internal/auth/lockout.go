package auth

// LockoutThreshold is the number of cumulative failed logins after which the
// account warning flag is raised.
const LockoutThreshold = 5

// ApplyFailure maps a pre-update failure count to the post-increment count
// and the warning decision. The warning is a signal only: it never blocks
// further attempts and a flagged account can still authenticate with the
// correct password.
//
// The Postgres store encodes the same rule in a single SQL update so that
// concurrent failures cannot lose increments; this function is the policy of
// record and backs the in-memory store used in tests.
func ApplyFailure(count int) (int, bool) {
	count++
	return count, count >= LockoutThreshold
}
