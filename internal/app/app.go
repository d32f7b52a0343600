package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"extfilter/internal/app/bootstrap"
	"extfilter/internal/app/server"
	"extfilter/internal/config"
	"extfilter/internal/database"
	"extfilter/internal/extfilter"
	"extfilter/internal/support"
)

const defaultBackendPort = 8080

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		return err
	}

	config.SetProductionMode(opts.production)
	if opts.production {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.ReadSettings()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.SetupDB()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer func() {
		if err := database.CloseDB(db); err != nil {
			log.Warn("error closing database", "error", err)
		}
	}()

	var customOpts []database.CustomRegistryOption
	redisClient, err := support.GetRedisClient()
	switch {
	case errors.Is(err, support.ErrRedisDisabled):
		log.Info("REDIS_URL not set; custom extension writes rely on the database lock only")
	case err != nil:
		return fmt.Errorf("failed to get redis client: %w", err)
	default:
		customOpts = append(customOpts, database.WithWriteLocker(
			support.NewRedisWriteLock(redisClient, cfg.WriteLockTTL, cfg.WriteLockWait),
		))
		defer func() {
			if err := support.CloseRedisClient(); err != nil {
				log.Warn("error closing redis client", "error", err)
			}
		}()
	}

	fixed := database.NewFixedExtensionRegistry(db)
	custom := database.NewCustomExtensionRegistry(db, customOpts...)

	if err := bootstrap.Setup(ctx, fixed); err != nil {
		return err
	}

	router := server.NewRouter(server.Dependencies{
		Fixed:     fixed,
		Custom:    custom,
		Validator: extfilter.NewEngine(fixed, custom),
	})

	return server.OpenRoutes(ctx, opts.port, router)
}

type options struct {
	port       int
	production bool
}

// parseOptions reads the command line. BACKEND_PORT, then PORT, win over -port
// so container platforms can assign the port.
func parseOptions(args []string) (options, error) {
	fs := flag.NewFlagSet("extfilter", flag.ContinueOnError)
	portFlag := fs.Int("port", defaultBackendPort, "Port for API server")
	productionFlag := fs.Bool("production", false, "Run in production mode")
	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("parse flags: %w", err)
	}

	return options{
		port:       resolvePort("BACKEND_PORT", "PORT", *portFlag),
		production: *productionFlag,
	}, nil
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
