package logging

import "pkt.systems/pslog"

type pslogClient struct {
	base pslog.Base
}

// NewPslog adapts a pslog logger for programs that run outside a Tarmac
// host. A nil logger yields Noop.
func NewPslog(logger pslog.Base) Client {
	if logger == nil {
		return Noop()
	}
	return &pslogClient{base: logger}
}

func (c *pslogClient) Info(message string, keyvals ...any)  { c.base.Info(message, keyvals...) }
func (c *pslogClient) Warn(message string, keyvals ...any)  { c.base.Warn(message, keyvals...) }
func (c *pslogClient) Error(message string, keyvals ...any) { c.base.Error(message, keyvals...) }
func (c *pslogClient) Debug(message string, keyvals ...any) { c.base.Debug(message, keyvals...) }
func (c *pslogClient) Trace(message string, keyvals ...any) { c.base.Trace(message, keyvals...) }

type noop struct{}

// Noop returns a Client that discards every entry.
func Noop() Client { return noop{} }

func (noop) Info(string, ...any)  {}
func (noop) Warn(string, ...any)  {}
func (noop) Error(string, ...any) {}
func (noop) Debug(string, ...any) {}
func (noop) Trace(string, ...any) {}
