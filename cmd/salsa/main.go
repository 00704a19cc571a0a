package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/lemussistemas/salsa-hn-frontend/academy"
	"github.com/lemussistemas/salsa-hn-frontend/api"
	"github.com/lemussistemas/salsa-hn-frontend/attendance"
	"github.com/lemussistemas/salsa-hn-frontend/auth"
	"github.com/lemussistemas/salsa-hn-frontend/internal/config"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/lemussistemas/salsa-hn-frontend/token"
	"github.com/lemussistemas/salsa-hn-frontend/token/filestore"
	"github.com/lemussistemas/salsa-hn-frontend/token/redisstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", ierrors.Message(err))
		}
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(".env")
	if err != nil {
		return err
	}
	setupLogger(c.GetLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, closeFn, err := newCommandLine(c, os.Stdout)
	if err != nil {
		return err
	}
	defer closeFn()
	return cli.run(ctx, args)
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// newCommandLine wires the packages from configuration. The returned func
// releases the token store.
func newCommandLine(c config.Config, out io.Writer) (*commandLine, func(), error) {
	store, closeFn, err := openTokenStore(c)
	if err != nil {
		return nil, nil, err
	}

	client, err := api.New(c.GetAPIURL(), store, api.WithHTTPClient(&http.Client{Timeout: c.GetHTTPTimeout()}))
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	manager, err := auth.NewManager(client, store)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	svc := academy.New(client)
	workflow, err := attendance.NewWorkflow(svc)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return &commandLine{
		out:      out,
		appName:  c.GetAppName(),
		manager:  manager,
		academy:  svc,
		workflow: workflow,
	}, closeFn, nil
}

// openTokenStore prefers Redis when a URL is configured and falls back to
// the token file.
func openTokenStore(c config.StorageConfig) (token.Store, func(), error) {
	if url := c.GetRedisURL(); url != "" {
		store, err := redisstore.Open(url, c.GetRedisPrefix())
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("prefix", c.GetRedisPrefix()).Msg("tokens stored in redis")
		return store, func() { _ = store.Close() }, nil
	}
	store, err := filestore.New(c.GetTokenFile())
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("path", store.Path()).Msg("tokens stored in file")
	return store, func() {}, nil
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
