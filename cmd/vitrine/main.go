package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/five82/vitrine/internal/app"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flagSet := flag.NewFlagSet("vitrine", flag.ContinueOnError)
	configPath := flagSet.String("config", "", "config file path (default ~/.config/vitrine/config.toml)")
	prefsPath := flagSet.String("prefs", "", "preferences file path (default ~/.config/vitrine/prefs.toml)")
	apiURL := flagSet.String("api-url", "", "products API base URL (overrides config)")
	pageSize := flagSet.Int("page-size", 0, "products per page (overrides config)")
	logLevel := flagSet.String("log-level", "", "debug, info, warn or error (overrides config)")
	demo := flagSet.Bool("demo", false, "serve an in-memory demo backend and browse it")
	demoProducts := flagSet.Int("demo-products", 0, "number of seeded demo products (default 120)")
	showVersion := flagSet.BoolP("version", "v", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "vitrine: %v\n", err)
		return 2
	}
	if *showVersion {
		fmt.Println("vitrine", version)
		return 0
	}

	// A missing .env is normal; anything else is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "vitrine: load .env: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		PrefsPath:    *prefsPath,
		APIURL:       *apiURL,
		PageSize:     *pageSize,
		LogLevel:     *logLevel,
		Version:      version,
		Demo:         *demo,
		DemoProducts: *demoProducts,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "vitrine: %v\n", err)
		return 1
	}
	return 0
}
