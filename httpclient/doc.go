/*
Package httpclient provides the HTTP transport used to reach the Consul API.

Two implementations share the Client interface. HTTPClient serializes each
request into the Tarmac httpclient protobuf and forwards it to the host with
waPC, for code running as a Tarmac WebAssembly function. NativeClient uses
net/http (traced with otelhttp) for regular Go programs. Both buffer the
response body, so a Response looks the same whichever transport produced it.

Errors use sentinel values combined with the underlying cause and can be
checked with errors.Is.
*/
package httpclient
