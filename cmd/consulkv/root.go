package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	consulkv "github.com/tarmac-project/consulkv"
	"github.com/tarmac-project/consulkv/httpclient"
	"github.com/tarmac-project/consulkv/kv"
	"github.com/tarmac-project/consulkv/logging"
	"github.com/tarmac-project/consulkv/metrics"
	"pkt.systems/pslog"
)

const (
	addressKey         = "address"
	schemeKey          = "scheme"
	datacenterKey      = "datacenter"
	tokenKey           = "token"
	logLevelKey        = "log_level"
	metricsTextfileKey = "metrics_textfile"
)

// errNotOK marks a write that Consul answered with false.
var errNotOK = errors.New("operation returned false")

type app struct {
	v      *viper.Viper
	logger pslog.Logger
	stdout io.Writer

	reg    *prometheus.Registry
	client kv.KV[json.RawMessage]
}

func newApp(logger pslog.Logger, stdout io.Writer) *app {
	return &app{
		v:      viper.New(),
		logger: logger,
		stdout: stdout,
		reg:    prometheus.NewRegistry(),
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "consulkv",
		Short:         "Read, write and lock JSON values in the Consul KV store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("address", consulkv.DefaultAddress, "Consul HTTP address (host:port, scheme prefix allowed)")
	flags.String("scheme", consulkv.DefaultScheme, "Consul HTTP scheme (http|https)")
	flags.String("datacenter", "", "datacenter to query (default agent datacenter)")
	flags.String("token", "", "ACL token sent as X-Consul-Token")
	flags.String("log-level", "", "log level (trace|debug|info|warn|error|none)")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")

	a.mustBindFlag(addressKey, "CONSUL_HTTP_ADDR", flags.Lookup("address"))
	a.mustBindFlag(schemeKey, "CONSUL_HTTP_SCHEME", flags.Lookup("scheme"))
	a.mustBindFlag(datacenterKey, "CONSUL_DATACENTER", flags.Lookup("datacenter"))
	a.mustBindFlag(tokenKey, "CONSUL_HTTP_TOKEN", flags.Lookup("token"))
	a.mustBindFlag(logLevelKey, "CONSULKV_LOG_LEVEL", flags.Lookup("log-level"))
	a.mustBindFlag(metricsTextfileKey, "CONSULKV_METRICS_TEXTFILE", flags.Lookup("metrics-textfile"))

	cmd.AddCommand(
		newGetCommand(a),
		newPutCommand(a),
		newDeleteCommand(a),
		newAcquireCommand(a),
		newReleaseCommand(a),
	)

	return cmd
}

func (a *app) mustBindFlag(key, env string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for key %s not found", key))
	}
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
	if env != "" {
		if err := a.v.BindEnv(key, env); err != nil {
			panic(err)
		}
	}
}

// init resolves configuration and builds the KV client.
func (a *app) init() error {
	rt, err := consulkv.NewRuntimeConfig(consulkv.Config{
		Address:    a.v.GetString(addressKey),
		Scheme:     a.v.GetString(schemeKey),
		Datacenter: a.v.GetString(datacenterKey),
		Token:      a.v.GetString(tokenKey),
	})
	if err != nil {
		return err
	}

	logger, err := a.kvLogger()
	if err != nil {
		return err
	}

	client, err := kv.New[json.RawMessage](kv.Config{
		SDKConfig:  rt,
		HTTPClient: httpclient.NewNative(httpclient.NativeConfig{}),
		Logger:     logger,
		Metrics:    metrics.NewPrometheus(a.reg),
	})
	if err != nil {
		return err
	}
	a.client = client

	a.logger.Debug("consul client ready", "address", rt.Address, "scheme", rt.Scheme, "datacenter", rt.Datacenter)
	return nil
}

func (a *app) kvLogger() (logging.Client, error) {
	levelStr := strings.TrimSpace(strings.ToLower(a.v.GetString(logLevelKey)))
	switch levelStr {
	case "":
		return logging.NewPslog(a.logger), nil
	case "none", "off", "disabled":
		a.logger = pslog.NoopLogger()
		return logging.Noop(), nil
	}

	level, ok := pslog.ParseLevel(levelStr)
	if !ok {
		return nil, fmt.Errorf("invalid log level %q", levelStr)
	}
	a.logger = a.logger.LogLevel(level)
	return logging.NewPslog(a.logger), nil
}

// writeMetrics writes the registry as a node-exporter textfile when configured.
func (a *app) writeMetrics() error {
	path := a.v.GetString(metricsTextfileKey)
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, a.reg)
}
