// inkctl inspects inkboard configuration and decision traces.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"inkboard/internal/config"
	"inkboard/internal/trace"
)

var (
	configPath = flag.String("config", "", "path to config file")
	tracePath  = flag.String("trace", "", "path to trace database (default: trace.path from config)")
	jsonOut    = flag.Bool("json", false, "print JSON instead of text")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	switch cmd {
	case "validate":
		path := *configPath
		if flag.NArg() >= 2 {
			path = flag.Arg(1)
		}
		cmdValidate(path)
	case "init":
		path := *configPath
		if flag.NArg() >= 2 {
			path = flag.Arg(1)
		}
		cmdInit(path)
	case "sessions":
		if flag.NArg() >= 2 {
			*tracePath = flag.Arg(1)
		}
		cmdSessions()
	case "replay":
		switch flag.NArg() {
		case 2:
			cmdReplay(flag.Arg(1))
		case 3:
			*tracePath = flag.Arg(1)
			cmdReplay(flag.Arg(2))
		default:
			fmt.Fprintln(os.Stderr, "Usage: inkctl replay [trace.db] <session>")
			os.Exit(1)
		}
	case "delete":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: inkctl delete <session>")
			os.Exit(1)
		}
		cmdDelete(flag.Arg(1))
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `inkctl - Configuration and trace utility for inkboard

Usage: inkctl [options] <command> [args]

Commands:
  validate [file]             Check a config file and print warnings
  init [file]                 Write the default config if none exists
  sessions [db]               List recorded trace sessions
  replay [db] <session>       Re-run a session's palm decisions with the configured thresholds
  delete <session>            Delete a session and its samples
  help                        Show this help message

Options:
  -config <path>  Path to config file (default: platform config dir)
  -trace <path>   Path to trace database (default: trace.path from config)
  -json           Print JSON output`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Error loading config: %v\n", err)
	}
	return cfg
}

func openStore() *trace.Store {
	path := *tracePath
	if path == "" {
		path = loadConfig().Trace.Path
	}
	if _, err := os.Stat(path); err != nil {
		fatalf("No trace database at %s\n", path)
	}
	store, err := trace.Open(path)
	if err != nil {
		fatalf("Error opening trace database: %v\n", err)
	}
	return store
}

func cmdValidate(path string) {
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintf(os.Stderr, "%s is invalid:\n", path)
			for _, e := range verrs {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", e.Field, e.Message)
			}
			os.Exit(1)
		}
		fatalf("Error: %v\n", err)
	}

	for _, w := range config.Check(cfg).Warnings() {
		fmt.Printf("warning: %s: %s\n", w.Field, w.Message)
	}
	fmt.Printf("%s: OK\n", path)
}

func cmdInit(path string) {
	if path == "" {
		path = config.ConfigPath()
	}
	_, created, err := config.LoadOrCreate(path)
	if err != nil {
		fatalf("Error: %v\n", err)
	}
	if created {
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}
	fmt.Printf("%s already exists\n", path)
}

func cmdSessions() {
	store := openStore()
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		fatalf("Error: %v\n", err)
	}
	if *jsonOut {
		fmt.Println(prettyJSON(sessions))
		return
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded")
		return
	}

	fmt.Printf("%-24s %-20s %-10s %8s %8s\n", "SESSION", "STARTED", "DURATION", "SAMPLES", "PALM")
	for _, s := range sessions {
		started := time.Unix(0, s.StartedNs)
		duration := "open"
		if s.EndedNs != nil {
			duration = time.Duration(*s.EndedNs - s.StartedNs).Round(time.Second).String()
		}
		fmt.Printf("%-24s %-20s %-10s %8d %8d\n", s.Name, started.Format("2006-01-02 15:04:05"), duration, s.Samples, s.Rejected)
	}
}

func cmdReplay(session string) {
	cfg := loadConfig()
	store := openStore()
	defer store.Close()

	samples, err := store.Samples(session)
	if err != nil {
		fatalf("Error: %v\n", err)
	}

	res := trace.Replay(samples, cfg.PalmConfig())
	if *jsonOut {
		fmt.Println(prettyJSON(res))
		return
	}

	fmt.Printf("Session %s: %d samples, %d classified\n", session, len(samples), res.Classified)
	fmt.Printf("Palm rejections: recorded %d, replayed %d\n", res.RecordedRejected, res.ReplayedRejected)
	for reason, n := range res.Stats.Rejected {
		fmt.Printf("  %-14s %d\n", reason, n)
	}
	if len(res.Changes) == 0 {
		fmt.Println("No verdict changes")
		return
	}

	fmt.Printf("%d verdict changes:\n", len(res.Changes))
	for _, c := range res.Changes {
		s := c.Sample
		verb := "now accepted"
		if c.NowRejected() {
			verb = "now rejected (" + c.Replayed.String() + ")"
		}
		fmt.Printf("  %s %-6s %-6s id=%d (%.0f,%.0f) size=%.0fx%.0f %s\n",
			time.Unix(0, s.TimestampNs).Format("15:04:05.000"), s.Kind, s.Event, s.ContactID, s.X, s.Y, s.Width, s.Height, verb)
	}
}

func cmdDelete(session string) {
	store := openStore()
	defer store.Close()

	if err := store.DeleteSession(session); err != nil {
		fatalf("Error: %v\n", err)
	}
	fmt.Printf("Deleted session %s\n", session)
}

func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	return string(data)
}
