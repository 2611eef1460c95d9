/*
Package request performs single exchanges against the Consul HTTP API.

A Requester combines a resolved consulkv.RuntimeConfig with any transport
that can execute an httpclient.Request. It encodes per-call options into
query parameters and headers, checks the response status and returns the
raw body together with the Consul metadata headers.

	doer := httpclient.NewNative(httpclient.NativeConfig{})
	r, err := request.New(request.Config{SDKConfig: rt, HTTPClient: doer})
	if err != nil {
		// handle error
	}

	body, meta, err := r.Get("/v1/kv/service/settings", nil, &request.QueryOptions{AllowStale: true})

Writes return the JSON boolean reported by Consul. A false result is not an
error. Responses outside the 2xx range are returned as *StatusError, which
matches ErrUnexpectedStatus with errors.Is.

No retries or timeouts are added here; those belong to the transport.
*/
package request
