/*
Package hostmock provides a pretend waPC host for the consulkv capability
clients.

It lets tests validate exactly what a client sends to the Tarmac host (the
httpclient request protobuf, log lines, metric updates) without a real host
running.

Quick start

	m, _ := hostmock.New(hostmock.Config{
	  ExpectedNamespace:  "tarmac",
	  ExpectedCapability: "httpclient",
	  ExpectedFunction:   "call",
	  PayloadValidator: func(p []byte) error {
	    // Unmarshal and assert fields here
	    return nil
	  },
	  Response: func() []byte { return okResponse },
	})

	client, _ := httpclient.New(httpclient.Config{HostCall: m.HostCall})

Behavior

  - Every invocation is recorded and available through Calls.
  - If Fail is true and Error is set, HostCall returns that error.
  - If Fail is true and Error is nil, HostCall returns ErrOperationFailed.
  - Otherwise HostCall enforces the non-empty Expected* fields and runs
    PayloadValidator when provided. FunctionResponses[function] wins over
    Response; with neither set the call returns nil bytes.

Blank Expected* fields are wildcards, which is what a single mock shared by
the logging and metrics clients needs.
*/
package hostmock
