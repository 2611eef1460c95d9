package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tarmac-project/consulkv/kv"
)

// errKeyNotFound is returned by get for a missing key.
var errKeyNotFound = errors.New("no key exists at")

func newGetCommand(a *app) *cobra.Command {
	var detailed bool
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the JSON value stored at KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, _, err := a.client.Get(args[0], nil)
			if err != nil {
				return err
			}
			if pair == nil {
				return fmt.Errorf("%w: %s", errKeyNotFound, args[0])
			}
			if detailed {
				return a.printJSON(pair)
			}
			_, err = fmt.Fprintln(a.stdout, string(*pair.Value))
			return err
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "print the key metadata along with the value")
	return cmd
}

func newPutCommand(a *app) *cobra.Command {
	var flags uint64
	cmd := &cobra.Command{
		Use:   "put KEY JSON",
		Short: "Store a JSON document at KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[1])
			if err != nil {
				return err
			}
			ok, _, err := a.client.Put(&kv.Pair[json.RawMessage]{Key: args[0], Flags: flags, Value: value}, nil)
			return a.printResult(ok, err)
		},
	}
	cmd.Flags().Uint64Var(&flags, "flags", 0, "opaque flags stored with the key")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, _, err := a.client.Delete(args[0], nil)
			return a.printResult(ok, err)
		},
	}
}

func newAcquireCommand(a *app) *cobra.Command {
	var (
		session string
		flags   uint64
	)
	cmd := &cobra.Command{
		Use:   "acquire KEY [JSON]",
		Short: "Acquire the lock on KEY for a session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair := &kv.Pair[json.RawMessage]{Key: args[0], Flags: flags, Session: session}
			if len(args) == 2 {
				value, err := parseValue(args[1])
				if err != nil {
					return err
				}
				pair.Value = value
			}
			ok, _, err := a.client.Acquire(pair, nil)
			return a.printResult(ok, err)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session ID that will hold the lock")
	cmd.Flags().Uint64Var(&flags, "flags", 0, "opaque flags stored with the key")
	return cmd
}

func newReleaseCommand(a *app) *cobra.Command {
	var (
		session string
		flags   uint64
	)
	cmd := &cobra.Command{
		Use:   "release KEY",
		Short: "Release the lock on KEY held by a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, _, err := a.client.Release(&kv.Pair[json.RawMessage]{Key: args[0], Flags: flags, Session: session}, nil)
			return a.printResult(ok, err)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session ID holding the lock")
	cmd.Flags().Uint64Var(&flags, "flags", 0, "opaque flags stored with the key")
	return cmd
}

func parseValue(s string) (*json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("value is not valid JSON: %s", s)
	}
	raw := json.RawMessage(s)
	return &raw, nil
}

// printResult prints the boolean answer of a write. False is reported as
// errNotOK so the process exits non-zero.
func (a *app) printResult(ok bool, err error) error {
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(a.stdout, ok); err != nil {
		return err
	}
	if !ok {
		return errNotOK
	}
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
