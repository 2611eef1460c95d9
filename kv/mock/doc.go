/*
Package mock provides an in-memory implementation of kv.KV for application tests.

Seed data, override single operations and inspect the recorded calls without
running Consul:

	m := mock.New[Settings](mock.Config[Settings]{
		Seed: map[string]*Settings{"service/settings": {Replicas: 3}},
	})
	pair, _, err := m.Get("service/settings", nil)

Locks behave like Consul: a key can be acquired by one session at a time,
re-acquiring with the same session succeeds, and only the holder can
release.

	m.OnAcquire("locks/leader").ReturnResult(false)
	m.OnGet("broken").ReturnError(errors.New("rpc error"))

	for _, c := range m.History() {
		// c.Op, c.Key, c.Session
	}
*/
package mock
