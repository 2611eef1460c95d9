/*
Package consulkv provides the shared configuration for a typed client of the
Consul KV HTTP API.

New and NewRuntimeConfig resolve a Config into a RuntimeConfig that the
capability clients (httpclient, request, kv, logging, metrics) read. Zero
values fall back to DefaultAddress, DefaultScheme and DefaultNamespace.
When the client runs inside a Tarmac WebAssembly function, Config.Handler is
registered with waPC and host calls use the resolved namespace.

The typed KV operations live in package kv:

	rt, _ := consulkv.NewRuntimeConfig(consulkv.Config{Address: "127.0.0.1:8500"})
	client, _ := kv.New[Settings](kv.Config{SDKConfig: rt, HTTPClient: httpclient.NewNative(httpclient.NativeConfig{})})
	pair, meta, err := client.Get("service/settings", nil)
*/
package consulkv
