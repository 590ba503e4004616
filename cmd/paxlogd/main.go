// Command paxlogd exposes paxlog's diagnostic surface as a small cobra CLI,
// the same set of operations consensus.c bolts onto Redis as the
// rg.infoconsensus/rg.testconsensusset/rg.testconsensusget commands. There is
// no real network transport in this repo (spec.md's external interfaces are
// a Cluster/Transport contract the host process supplies, not a wire
// protocol paxlogd itself speaks — see SPEC_FULL.md §3), so every
// invocation here runs a single standalone node in its own process:
// `serve` keeps one alive behind a prometheus endpoint, and `submit`/
// `info`/`testset`/`testget` are one-shot commands against a fresh node
// seeded from persisted-nowhere defaults, useful for exercising the engine
// in isolation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/senutpal/paxlog"
	"github.com/senutpal/paxlog/internal/config"
)

const defaultLog = "default"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "paxlogd",
		Short: "Diagnostics and a standalone runner for the paxlog replicated-log engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (yaml/json/toml)")
	root.PersistentFlags().String("node-id", "paxlogd-1", "this node's id")
	v.BindPFlag("node_id", root.PersistentFlags().Lookup("node-id"))

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newSubmitCmd(v))
	root.AddCommand(newInfoCmd(v))
	root.AddCommand(newTestSetCmd(v))
	root.AddCommand(newTestGetCmd(v))
	return root
}

// standaloneNode builds a single-node, non-cluster-mode paxlog.Node with
// one log registered, matching consensus.c's synchronous fast path for a
// node not running in cluster mode.
func standaloneNode(v *viper.Viper, logger *zap.Logger) (*paxlog.Node, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	id := paxlog.NewNodeID(cfg.NodeID)
	c, err := paxlog.NewStaticCluster(id, []paxlog.NodeID{id}, false)
	if err != nil {
		return nil, err
	}
	t := paxlog.NewMemoryTransport().Join(id)
	n := paxlog.NewNode(c, t, nil, logger, cfg)
	n.CreateLog(defaultLog, func([]byte, interface{}) {}, func([]byte, interface{}) {})
	return n, nil
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a standalone node and expose its prometheus metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			node, err := standaloneNode(v, logger)
			if err != nil {
				return err
			}
			stop := node.Start()
			defer stop()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

			go func() {
				logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server stopped", zap.Error(err))
				}
			}()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			<-ctx.Done()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShortTick*10)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newSubmitCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "submit [value]",
		Short: "Submit a value to the default log and print the resulting delivery order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := standaloneNode(v, zap.NewNop())
			if err != nil {
				return err
			}
			node.Submit(defaultLog, []byte(args[0]), nil)
			for _, val := range node.TestGet(defaultLog) {
				fmt.Println(string(val))
			}
			return nil
		},
	}
}

func newInfoCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print a diagnostic snapshot of every log",
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := standaloneNode(v, zap.NewNop())
			if err != nil {
				return err
			}
			for _, info := range node.Info() {
				fmt.Printf("%+v\n", info)
			}
			return nil
		},
	}
}

func newTestSetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "testset [value]",
		Short: "rg.testconsensusset equivalent: submit value and print ok",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := standaloneNode(v, zap.NewNop())
			if err != nil {
				return err
			}
			node.TestSet(defaultLog, []byte(args[0]))
			fmt.Println("ok")
			return nil
		},
	}
}

func newTestGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "testget",
		Short: "rg.testconsensusget equivalent: print every delivered value",
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := standaloneNode(v, zap.NewNop())
			if err != nil {
				return err
			}
			for _, val := range node.TestGet(defaultLog) {
				fmt.Println(string(val))
			}
			return nil
		},
	}
}
