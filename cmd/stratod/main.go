package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	konghcl "github.com/alecthomas/kong-hcl/v2"
	"github.com/stratosql/strato/common"
	"github.com/stratosql/strato/conf"
	log "github.com/stratosql/strato/logger"
	"github.com/stratosql/strato/server"
)

type arguments struct {
	Config kong.ConfigFlag `help:"Path to config file" type:"existingfile" required:""`
	Server conf.Config     `help:"Server configuration" embed:"" prefix:""`
	Log    log.Config      `help:"Configuration for the logger" embed:"" prefix:"log-"`
}

func logErrorAndExit(msg string) {
	log.Errorf(msg)
	os.Exit(1)
}

func main() {
	defer common.PanicHandler()

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logErrorAndExit(err.Error())
	}

	srv, err := server.NewServer(cfg.Server)
	if err != nil {
		logErrorAndExit(err.Error())
	}
	if err := srv.Start(); err != nil {
		logErrorAndExit(err.Error())
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	log.Warnf("signal: %s received. strato server will be closed", sig.String())
	// hard stop if server Stop() hangs
	tz := time.AfterFunc(5*time.Second, func() {
		log.Warn("server.Stop() did not complete in time. system will exit.")
		os.Exit(1)
	})
	if err := srv.Stop(); err != nil {
		log.Warnf("failure in stopping strato server: %v", err)
	}
	tz.Stop()
}

func loadConfig(args []string) (*arguments, error) {
	cfg := &arguments{}
	parser, err := kong.New(cfg, kong.Configuration(konghcl.Loader))
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Log.Configure(); err != nil {
		return nil, err
	}
	return cfg, nil
}
