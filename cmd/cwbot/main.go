package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/legumeabi/twitch-cw-command/auth"
	"github.com/legumeabi/twitch-cw-command/chat/twitchirc"
	"github.com/legumeabi/twitch-cw-command/cwcommand"
	"github.com/legumeabi/twitch-cw-command/cwservice"
	"github.com/legumeabi/twitch-cw-command/internal/config"
	"github.com/legumeabi/twitch-cw-command/token"
	"github.com/legumeabi/twitch-cw-command/token/keyringstore"
	"github.com/legumeabi/twitch-cw-command/token/refresh"
	"github.com/legumeabi/twitch-cw-command/twitchid"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "cwbot",
		Usage: "Twitch chat companion answering the !cw content-warning command",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "channel",
				Aliases: []string{"c"},
				Usage:   "Twitch channel to join (defaults to TWITCH_CHANNEL)",
			},
			&cli.IntFlag{
				Name:  "cooldown",
				Usage: "Cooldown in seconds between answered !cw commands (defaults to COOLDOWN_SECONDS)",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Forget the stored credentials and exit",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("cwbot exited with error")
	}
}

func runAction(c *cli.Context) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()
	setupLogging(cfg)
	displayAppname(cfg.GetAppName())

	channel := c.String("channel")
	if channel == "" {
		channel = cfg.GetChannel()
	}
	if channel == "" {
		return errors.New("a channel is required: pass --channel or set TWITCH_CHANNEL")
	}

	cooldown := time.Duration(cfg.GetCooldownSeconds()) * time.Second
	if c.Int("cooldown") > 0 {
		cooldown = time.Duration(c.Int("cooldown")) * time.Second
	}

	backend, err := keyringstore.New(cfg.GetDataFolder())
	if err != nil {
		return errors.Wrap(err, "open token storage")
	}
	store, err := token.NewStore(backend)
	if err != nil {
		return err
	}

	if c.Bool("reset") {
		if err := store.Clear(); err != nil {
			return errors.Wrap(err, "clear token storage")
		}
		fmt.Println("Stored credentials cleared.")
		return nil
	}

	idp, err := twitchid.New(cfg.GetClientID(), cfg.GetScopes())
	if err != nil {
		return err
	}

	refresher, err := refresh.NewManager(idp, store)
	if err != nil {
		return err
	}
	defer refresher.Subscribe(func(refreshing bool) {
		if refreshing {
			log.Info().Msg("refreshing tokens...")
		}
	})()

	chatClient := twitchirc.New()

	fetcher, err := cwservice.New(cfg.GetCWServiceURL())
	if err != nil {
		return err
	}
	handler, err := cwcommand.New(chatClient, fetcher, cooldown)
	if err != nil {
		return err
	}

	service, err := auth.NewService(auth.Deps{
		Device:    idp,
		Validator: idp,
		Refresher: refresher,
		Store:     store,
		Chat:      chatClient,
		Channel:   channel,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler.Bind(ctx, chatClient)
	defer service.Subscribe(printProgress)()

	if err := service.Resume(ctx); err != nil {
		return errors.Wrap(err, "resume authentication")
	}
	if service.State() == auth.StateUnauthenticated {
		if err := service.Connect(ctx); err != nil {
			return errors.Wrap(err, "start device authorization")
		}
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	_ = chatClient.Disconnect()
	return nil
}

// printProgress surfaces the auth lifecycle on the terminal; everything the
// user must act on goes to stdout, diagnostics to the log.
func printProgress(event auth.Event) {
	switch event.Kind {
	case auth.EventUserCodeReady:
		fmt.Printf("\nTo authorize this bot, visit\n\n    %s\n\nand enter the code %s\n\n",
			event.Session.VerificationURI, event.Session.UserCode)
	case auth.EventStateChanged:
		if event.State == auth.StateAuthenticated {
			log.Info().Str("login", event.Login).Msg("authenticated")
		}
	case auth.EventAuthError:
		log.Warn().Err(event.Err).Msg("authentication failed")
	}
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
