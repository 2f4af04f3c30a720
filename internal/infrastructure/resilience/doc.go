/*
Package resilience provides a circuit breaker for the snapshot stores.

Every durable store backend is wrapped in a breaker so a dead database or
bucket fails fast and the shell keeps running with a "changes were not
saved" warning instead of stalling each command on a network timeout.

# Usage

	breaker := resilience.New("postgres", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})

	err := breaker.Call(func() error {
		return store.Put(ctx, key, data)
	})

	data, err := resilience.Do(breaker, func() ([]byte, error) {
		return fetch(ctx, key)
	})

# States

	Closed --[ReadyToTrip]--> Open --[Timeout]--> Half-Open --[MaxRequests successes]--> Closed
	                                                  |
	                                              [failure]
	                                                  v
	                                                Open

Each transition starts a new generation; results reported by requests
admitted in an earlier generation are ignored.
*/
package resilience
