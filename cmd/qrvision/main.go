package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/qrvision/qrvision"
	"github.com/qrvision/qrvision/payload"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "encode":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: qrvision encode <template> [key=value ...]")
			os.Exit(1)
		}
		out, err := runEncode(os.Args[2], os.Args[3:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
	case "version":
		fmt.Printf("qrvision %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("QRVISION_CONFIG"), "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	log := setupLogger(cfg.Env)

	app := qrvision.New(cfg.siteConfig(), qrvision.WithLogger(log))
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("close app", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// runEncode formats a payload from key=value arguments.
func runEncode(id string, args []string) (string, error) {
	data := payload.FormData{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return "", fmt.Errorf("expected key=value, got %q", arg)
		}
		data[k] = v
	}
	out, err := payload.Encode(payload.TemplateID(id), data)
	if err != nil {
		return "", fmt.Errorf("%w %q (known: %s)", err, id, knownTemplates())
	}
	return out, nil
}

func knownTemplates() string {
	var ids []string
	for _, t := range payload.Templates() {
		ids = append(ids, string(t.ID))
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func printUsage() {
	fmt.Println(`qrvision - QR code generation, scanning and local analytics

Usage:
  qrvision <command> [arguments]

Commands:
  serve [-config file]            Run the web server
  encode <template> [key=value]   Print the payload for a template
  version                         Print the qrvision version
  help                            Show this help message

Templates:
  wifi, vcard, location, whatsapp, email, product

Examples:
  qrvision serve -config config/local.yaml
  qrvision encode wifi ssid=Home password=secret encryption=WPA`)
}
