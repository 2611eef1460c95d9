/*
Package kvtest runs a fake Consul KV HTTP API for tests.

The server keeps entries in memory and mimics the parts of Consul the kv
client relies on: create, modify and lock indexes, flags, session locks
through the acquire and release parameters, idempotent deletes and the
X-Consul-Index header.

	srv := kvtest.New(t)
	client, _ := kv.New[Settings](kv.Config{
		SDKConfig:  srv.RuntimeConfig(),
		HTTPClient: httpclient.NewNative(httpclient.NativeConfig{DisableTracing: true}),
	})
	session := srv.NewSession()

The server is closed when the test ends.
*/
package kvtest
