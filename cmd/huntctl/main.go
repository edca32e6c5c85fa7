package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/problem-hunt/huntkit/adapters/events"
	"github.com/problem-hunt/huntkit/adapters/identity"
	"github.com/problem-hunt/huntkit/adapters/store"
	"github.com/problem-hunt/huntkit/adapters/wallet"
	"github.com/problem-hunt/huntkit/client"
	"github.com/problem-hunt/huntkit/ports"
	"github.com/problem-hunt/huntkit/session"
)

// promptNavigator is the CLI rendering of the terminal-failure redirect: there
// is no browser to send anywhere, so tell the user to log in again.
type promptNavigator struct {
	log zerolog.Logger
}

func (n promptNavigator) Redirect(path string) {
	n.log.Error().Str("path", path).Msg("session is no longer valid, run `huntctl login` to sign in again")
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	apiURL := os.Getenv("HUNT_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:7071"
	}
	authURL := os.Getenv("HUNT_AUTH_URL")
	if authURL == "" {
		log.Fatal().Msg("HUNT_AUTH_URL is not set")
	}
	anonKey := os.Getenv("HUNT_ANON_KEY")

	var (
		kv          ports.Store
		broadcaster ports.Broadcaster
	)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse Redis URL")
		}
		redisClient := redis.NewClient(opts)
		kv = store.NewRedisStore(redisClient)

		wmLogger := watermill.NewStdLogger(false, false)
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Redis publisher")
		}
		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Redis subscriber")
		}
		broadcaster = events.NewWatermillBroadcaster(publisher, subscriber)
	} else {
		kv = store.NewMemoryStore()
		broadcaster = events.NewNopBroadcaster()
	}

	idp := identity.NewClient(identity.Config{
		BaseURL: authURL,
		APIKey:  anonKey,
		Store:   kv,
		Logger:  &log,
	})

	sessions := session.NewManager(session.Config{
		Identity:    idp,
		Broadcaster: broadcaster,
		Navigator:   promptNavigator{log: log},
		Logger:      &log,
		APIBaseURL:  apiURL,
	})

	ctx := context.Background()
	if err := sessions.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("token update notifications unavailable")
	}

	hunt := client.New(sessions, &log)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "login":
		if len(os.Args) != 4 {
			usage()
			os.Exit(2)
		}
		_, err = idp.SignInWithPassword(ctx, os.Args[2], os.Args[3])
		if err == nil {
			fmt.Println("logged in")
		}
	case "wallet-login":
		key := os.Getenv("HUNT_WALLET_KEY")
		if key == "" {
			log.Fatal().Msg("HUNT_WALLET_KEY is not set")
		}
		var signer *wallet.Signer
		signer, err = wallet.FromHex(key)
		if err == nil {
			_, err = idp.SignInWithWallet(ctx, signer)
		}
		if err == nil {
			fmt.Printf("logged in as %s\n", signer.Address())
		}
	case "logout":
		err = idp.SignOut(ctx)
	case "whoami":
		err = whoami(ctx, sessions)
	case "problems":
		var opts client.ListProblemsOptions
		if len(os.Args) > 2 {
			opts.Category = os.Args[2]
		}
		var problems []client.Problem
		problems, err = hunt.ListProblems(ctx, opts)
		for _, p := range problems {
			fmt.Printf("%s  [%s]  %s  (%d upvotes, %d proposals)\n",
				p.ID, p.Category, p.Title, p.Upvotes, p.Proposals)
		}
	case "search":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		var problems []client.Problem
		problems, err = hunt.SearchProblems(ctx, os.Args[2])
		for _, p := range problems {
			fmt.Printf("%s  %s\n", p.ID, p.Title)
		}
	case "leaderboard":
		var entries []client.LeaderboardEntry
		entries, err = hunt.Leaderboard(ctx, "", 20)
		for _, e := range entries {
			fmt.Printf("#%d  %s  %d pts (%s)\n", e.Rank, e.BuilderName, e.ReputationScore, e.Tier)
		}
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func whoami(ctx context.Context, sessions *session.Manager) error {
	token, err := sessions.GetValidAccessToken(ctx, session.TokenOptions{Reason: "whoami"})
	if err != nil {
		return err
	}
	if token == "" {
		fmt.Println("not logged in")
		return nil
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("decode access token: %w", err)
	}
	fmt.Printf("user %s, token expires %s\n", claims.Subject, claims.ExpiresAt)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: huntctl <command>

commands:
  login <email> <password>   sign in with email and password
  wallet-login               sign in with the wallet key in HUNT_WALLET_KEY
  logout                     clear the stored session
  whoami                     show the authenticated user
  problems [category]        list problems
  search <query>             search problems
  leaderboard                show the builder leaderboard`)
}
