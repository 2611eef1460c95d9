/*
Package mock provides a lightweight mock implementation of httpclient.Client.

Tests configure per method and full URL (query included) responses, set a
default response and inspect the recorded Calls without making network
requests. The default response is a 200 with a JSON true body, which is what
Consul returns for a successful write.

	m := mock.New(mock.Config{})
	m.On(http.MethodGet, "http://127.0.0.1:8500/v1/kv/a").ReturnBody(`[]`)
*/
package mock
