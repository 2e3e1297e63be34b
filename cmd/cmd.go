package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/named-data/nlsr/config"
)

// Version of the daemon, set at build time.
var Version = "dev"

var CmdNlsr = &cobra.Command{
	Use:     "nlsrd CONFIG-FILE",
	Short:   "NDN Link State Routing Daemon with MIDST extension",
	Version: Version,
	Args:    cobra.ExactArgs(1),
	Run:     run,
}

func run(cmd *cobra.Command, args []string) {
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open configuration file: %v\n", err)
		os.Exit(3)
	}
	defer f.Close()

	conf := struct {
		Config *config.Config `json:"nlsr"`
	}{
		Config: config.DefaultConfig(),
	}
	dec := yaml.NewDecoder(f, yaml.Strict())
	if err = dec.Decode(&conf); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse configuration file: %v\n", err)
		os.Exit(3)
	}

	exe, err := NewExecutor(conf.Config)
	if err != nil {
		panic(err)
	}

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)

	quitchan := make(chan bool, 1)
	go func() {
		if err := exe.Start(); err != nil {
			panic(err)
		}
		quitchan <- true
	}()

	for {
		select {
		case <-sigchan:
			exe.Stop()
		case <-quitchan:
			return
		}
	}
}
