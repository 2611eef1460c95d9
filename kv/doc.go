/*
Package kv provides a typed client for the Consul KV HTTP API.

Values are stored as JSON documents. Client[T] serializes *T on writes and,
on reads, decodes the base64 value Consul returns back into a fresh T:

	type Settings struct {
		Replicas int    `json:"replicas"`
		Region   string `json:"region"`
	}

	client, err := kv.New[Settings](kv.Config{SDKConfig: rt})
	if err != nil {
		// handle error
	}

	ok, _, err := client.Put(&kv.Pair[Settings]{Key: "service/settings", Value: &Settings{Replicas: 3}}, nil)
	pair, meta, err := client.Get("service/settings", nil)

A missing key is not an error: Get returns a nil Pair.

# Locks

Acquire and Release map to the acquire and release parameters of a KV PUT.
They require a session created elsewhere and report contention as false
rather than an error:

	lock := &kv.Pair[Settings]{Key: "locks/leader", Session: sessionID}
	held, _, err := client.Acquire(lock, nil)

Zero-value Config fields fall back to defaults: the Tarmac host httpclient
capability for transport, logging.Noop and metrics.Noop. Programs running
outside Tarmac pass httpclient.NewNative. Tests can use kvtest for a fake
Consul server or kv/mock for an in-memory KV.
*/
package kv
