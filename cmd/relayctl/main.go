// Command relayctl switches relays from the command line.
//
// In one-shot mode the listed channels are switched on and every other
// channel off, with a single open-push-close cycle:
//
//	relayctl -v 1 5 7
//
// switches channels 1, 5 and 7 on and the rest off. With no channel
// arguments all channels are switched off.
//
// With -i an interactive console is started instead; see the
// interactive package for the available commands.
//
// Exit codes (one-shot mode):
//
//	0  mask pushed
//	2  a channel argument was outside 1-8 (nothing sent to the board)
//	3  the board could not be opened
//	1  the push failed
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/schaapsound/relayd/cmd/relayctl/interactive"
	"github.com/schaapsound/relayd/pkg/config"
	"github.com/schaapsound/relayd/pkg/device"
	"github.com/schaapsound/relayd/pkg/relay"
)

func main() {
	var (
		verbose     = flag.BoolP("verbose", "v", false, "debug logging, including raw frames")
		interactMod = flag.BoolP("interactive", "i", false, "interactive console instead of one-shot")
		configFile  = flag.StringP("config", "c", "", "YAML configuration file")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.WithError(err).Fatal("cannot load configuration")
		}
	}
	devCfg := cfg.DeviceConfig()

	if *interactMod {
		os.Exit(runConsole(devCfg, log))
	}
	os.Exit(oneShot(devCfg, flag.Args(), log))
}

// oneShot parses the channel arguments, pushes the resulting mask once
// and exits. Argument validation happens before any device I/O.
func oneShot(devCfg device.Config, args []string, log logrus.FieldLogger) int {
	channels := make([]int, 0, len(args))
	for _, a := range args {
		ch, err := strconv.Atoi(a)
		if err != nil {
			usage(a)
			return 2
		}
		channels = append(channels, ch)
	}

	mask, err := relay.FromChannels(channels)
	if err != nil {
		usage(err.Error())
		return 2
	}

	sess, err := device.Open(devCfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		return 3
	}
	defer sess.Close()

	log.WithField("mask", mask.String()).Debug("pushing mask")
	if err := sess.Push(mask); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		return 1
	}
	return 0
}

func runConsole(devCfg device.Config, log logrus.FieldLogger) int {
	open := func() (interactive.Session, error) {
		s, err := device.Open(devCfg, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	sess, err := open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		return 3
	}

	console, err := interactive.New(sess, open, 0)
	if err != nil {
		sess.Close()
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		return 1
	}
	if err := console.Run(); err != nil && !errors.Is(err, os.ErrClosed) {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		return 1
	}
	return 0
}

func usage(bad string) {
	fmt.Fprintf(os.Stderr, "error: only give valid relay numbers (%d-%d) as parameters, got %s\n",
		relay.MinChannel, relay.MaxChannel, bad)
	fmt.Fprintln(os.Stderr, "use -v as first option to enable verbose output")
	fmt.Fprintln(os.Stderr, "example: relayctl -v 1 5 7 switches 1, 5 and 7 on, the rest off")
}
