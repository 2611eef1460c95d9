/*
Package logging offers the structured logger used by the consulkv clients.

The Client interface has one method per level (Info, Warn, Error, Debug,
Trace), each taking a message and alternating key/value pairs. New sends
entries to the Tarmac host logging capability with the pairs rendered as
key=value; NewPslog forwards to a pslog logger for native programs; Noop
discards everything and is what the kv client uses when no logger is set.
*/
package logging
