package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/entrykit/htmlentry"
	"github.com/entrykit/htmlentry/internal/config"
	"github.com/entrykit/htmlentry/internal/logging"
)

func main() {
	exec := flag.Bool("exec", false, "Execute the entry's scripts and print the export")
	strict := flag.Bool("strict", false, "Use strict-global sandbox scoping")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	location := flag.Arg(0)
	if location == "" {
		fmt.Fprintln(os.Stderr, "usage: htmlentry [-exec] [-strict] [-v] <url>")
		os.Exit(2)
	}

	cfg := config.LoadOrDefault()
	logCfg := logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	}
	if *verbose {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	loader, err := htmlentry.New(htmlentry.WithLogger(logger))
	if err != nil {
		log.Fatalf("failed to create loader: %v", err)
	}

	ctx := context.Background()
	handle, err := loader.LoadHTML(ctx, location)
	if err != nil {
		log.Fatalf("load failed: %v", err)
	}

	if !*exec {
		fmt.Println(handle.Template)
		return
	}

	sandbox := htmlentry.NewGlobalSandbox()
	export, err := handle.ExecScripts(ctx, sandbox, &htmlentry.ExecOptions{
		StrictGlobal: *strict,
	})
	if err != nil {
		log.Fatalf("execution failed: %v", err)
	}

	fmt.Printf("entry: %s\n", handle.Entry)
	switch v := export.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("export keys: %v\n", keys)
	default:
		fmt.Printf("export: %v\n", export)
	}
}
