// ABOUTME: CLI entry point: one-shot generation or the HTTP API server.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/infragenie/infragenie"
	"github.com/infragenie/infragenie/bundler"
	"github.com/infragenie/infragenie/config"
	"github.com/infragenie/infragenie/pipeline"
	"github.com/infragenie/infragenie/server"
	"github.com/infragenie/infragenie/store"
)

var version = "dev"

func main() {
	loadDotEnv(".env")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `infragenie %s

Usage:
  infragenie generate -prompt "..." [-config file] [-out kit.zip]
  infragenie serve [-config file]
  infragenie version
`, version)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	prompt := fs.String("prompt", "", "infrastructure request")
	configPath := fs.String("config", "", "config file path")
	out := fs.String("out", "", "write the deployment kit zip here")
	_ = fs.Parse(args)

	if *prompt == "" {
		return fmt.Errorf("generate: -prompt is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	p, err := infragenie.NewPipeline(cfg, infragenie.NewClient(cfg),
		pipeline.WithEventHandler(func(ev pipeline.Event) {
			if ev.Stage != "" {
				log.Printf("%s %s %s", ev.Type, ev.Stage, ev.Message)
			} else {
				log.Printf("%s %s", ev.Type, ev.Message)
			}
		}))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := p.Run(ctx, *prompt)

	if archive := openArchive(cfg); archive != nil {
		if aerr := archive.SaveRun(rec); aerr != nil {
			log.Printf("archive run: %v", aerr)
		}
		_ = archive.Close()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}

	if rec.Blocked {
		return fmt.Errorf("run blocked: %s", rec.BlockReason)
	}

	if *out != "" {
		kit, kerr := bundler.Kit(rec)
		if kerr != nil {
			return kerr
		}
		if werr := os.WriteFile(*out, kit, 0o644); werr != nil {
			return fmt.Errorf("write kit: %w", werr)
		}
		log.Printf("wrote deployment kit to %s", *out)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	p, err := infragenie.NewPipeline(cfg, infragenie.NewClient(cfg))
	if err != nil {
		return err
	}

	archive := openArchive(cfg)
	if archive == nil {
		return fmt.Errorf("serve: cannot open archive at %s", cfg.DBPath)
	}
	defer func() { _ = archive.Close() }()

	return server.New(p, archive).ListenAndServe(cfg.Addr)
}

func openArchive(cfg *config.Config) *store.Archive {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Printf("create data dir: %v", err)
		return nil
	}
	archive, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Printf("open archive: %v", err)
		return nil
	}
	return archive
}

// loadDotEnv reads KEY=VALUE lines without overriding the real environment.
func loadDotEnv(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
