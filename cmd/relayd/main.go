// Command relayd is the relay board daemon.
//
// It watches a directory for channel marker files and mirrors them to
// an 8-channel CH341A USB relay board: creating D_OUT_<n> switches
// channel n on, deleting it switches the channel off. Any process that
// can create and delete files can control the relays.
//
// The board does not have to be present at startup; relayd retries the
// USB connection every second until it appears, and reconnects the
// same way whenever a transfer fails.
//
// Usage:
//
//	relayd [flags]
//
// Flags:
//
//	-p, --dir string      watched directory (default "/tmp/io")
//	-c, --config string   YAML configuration file
//	-j, --journal string  CBOR event journal file
//	-v, --verbose         debug logging, including raw frames
//	-s, --syslog          log to syslog instead of stderr
//	    --retry-delay duration  pause between board open attempts (default 1s)
//
// Examples:
//
//	# Watch the default directory, log to syslog
//	relayd -s
//
//	# Custom directory with an event journal
//	relayd -p /var/run/relays -j /var/log/relayd.cbor
package main

import (
	"context"
	"fmt"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
	flag "github.com/spf13/pflag"

	"github.com/schaapsound/relayd/pkg/config"
	"github.com/schaapsound/relayd/pkg/daemon"
	"github.com/schaapsound/relayd/pkg/device"
	"github.com/schaapsound/relayd/pkg/journal"
	"github.com/schaapsound/relayd/pkg/watcher"
)

func main() {
	var (
		dir         = flag.StringP("dir", "p", "", "watched directory (default \""+config.DefaultDir+"\")")
		configFile  = flag.StringP("config", "c", "", "YAML configuration file")
		journalFile = flag.StringP("journal", "j", "", "CBOR event journal file")
		verbose     = flag.BoolP("verbose", "v", false, "debug logging, including raw frames")
		useSyslog   = flag.BoolP("syslog", "s", false, "log to syslog instead of stderr")
		retryDelay  = flag.Duration("retry-delay", 0, "pause between board open attempts (default 1s)")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if *useSyslog {
		hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_DAEMON|syslog.LOG_INFO, "relayd")
		if err != nil {
			fmt.Fprintf(os.Stderr, "relayd: cannot connect to syslog: %v\n", err)
			os.Exit(1)
		}
		log.AddHook(hook)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.WithError(err).Fatal("cannot load configuration")
		}
	}

	// Flags override the configuration file.
	if *dir != "" {
		cfg.Watch.Dir = *dir
	}
	if *journalFile != "" {
		cfg.Journal = *journalFile
	}
	if *retryDelay > 0 {
		cfg.Daemon.RetryDelay = config.Duration(*retryDelay)
	}

	var jrnl journal.Journal = journal.Nop{}
	if cfg.Journal != "" {
		f, err := journal.OpenFile(cfg.Journal)
		if err != nil {
			log.WithError(err).Fatal("cannot open journal")
		}
		defer f.Close()
		jrnl = f
	}

	w, err := watcher.New(cfg.Watch.Dir, log)
	if err != nil {
		log.WithError(err).Fatal("cannot watch directory")
	}
	defer w.Close()

	devCfg := cfg.DeviceConfig()
	opener := func() (daemon.Session, error) {
		s, err := device.Open(devCfg, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	d := daemon.New(cfg.DaemonConfig(), opener, w, log, jrnl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := d.Run(ctx); err != nil {
		log.WithError(err).WithField("uptime", time.Since(start).Round(time.Second)).Error("daemon exited")
		os.Exit(1)
	}
}
