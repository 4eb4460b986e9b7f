// Command dubforge is a command-line companion to the dubbing studio.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"dubforge/config"
	"dubforge/fetch"
	apphttp "dubforge/http"
	"dubforge/internal/app"
	"dubforge/tts"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "fetch":
		cmdFetch(args)
	case "estimate":
		cmdEstimate(args)
	case "serve":
		cmdServe()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `dubforge - dubbing studio command line

Usage:
  dubforge fetch [flags] <youtube-url>   Fetch video metadata
  dubforge estimate [flags] <text>       Estimate synthesis cost and duration
  dubforge serve                         Run the API server and job workers
  dubforge help                          Show this help message

Examples:
  dubforge fetch https://youtu.be/dQw4w9WgXcQ             # Metadata summary
  dubforge fetch --formats <url>                          # Include stream formats
  dubforge fetch --json <url>                             # Raw JSON output
  dubforge estimate "Hello world"                         # Default provider
  dubforge estimate --provider local "Hello world"        # On-box engine

For help on specific command: dubforge <command> -h
`)
}

func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	withFormats := fs.Bool("formats", false, "Require and list stream formats")
	asJSON := fs.Bool("json", false, "Print raw JSON instead of a table")
	maxHeight := fs.Int("max-height", 0, "Highest acceptable video height (0 = any)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dubforge fetch [flags] <youtube-url>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing youtube-url\n")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	client := apphttp.New(nil)
	defer client.Close()

	strategies := []fetch.Strategy{
		fetch.NewOEmbedStrategy(client),
		fetch.NewPlayerStrategy(nil),
		fetch.NewYtdlpStrategy(cfg.YtdlpPath, cfg.YtdlpTimeout),
	}
	if cfg.YouTubeAPIKey != "" {
		if dataAPI, err := fetch.NewDataAPIStrategy(cfg.YouTubeAPIKey, 0); err == nil {
			strategies = append(strategies, dataAPI)
		}
	}
	fetcher := fetch.NewFetcher(strategies...)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.YtdlpTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Fetching %s...\n", argv[0])
	meta, err := fetcher.Fetch(ctx, argv[0], &fetch.Options{
		RequireFormats: *withFormats,
		MaxHeight:      *maxHeight,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching video: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(meta)
		return
	}

	fmt.Printf("Video ID:  %s\n", meta.ID)
	fmt.Printf("Title:     %s\n", meta.Title)
	fmt.Printf("Author:    %s\n", meta.Author)
	if meta.Duration > 0 {
		fmt.Printf("Duration:  %d:%02d\n", int(meta.Duration.Minutes()), int(meta.Duration.Seconds())%60)
	}
	if meta.ViewCount > 0 {
		fmt.Printf("Views:     %d\n", meta.ViewCount)
	}
	if meta.Thumbnail != "" {
		fmt.Printf("Thumbnail: %s\n", meta.Thumbnail)
	}

	if *withFormats && len(meta.Formats) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ITAG\tTYPE\tQUALITY\tBITRATE")
		for _, f := range meta.Formats {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", f.Itag, f.MimeType, f.QualityLabel, f.Bitrate)
		}
		w.Flush()
	}
}

func cmdServe() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := app.Run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdEstimate(args []string) {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	providerName := fs.String("provider", "fal", "Synthesis provider: fal or local")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dubforge estimate [flags] <text>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing text\n")
		fs.Usage()
		os.Exit(1)
	}
	text := strings.Join(argv, " ")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	client := apphttp.New(nil)
	defer client.Close()

	tts.Register(tts.NewFalProvider(tts.FalConfig{
		Endpoint:       cfg.TTSEndpoint,
		APIKey:         cfg.TTSAPIKey,
		CostPer1kChars: cfg.TTSCostPer1kChars,
	}, client))
	tts.Register(tts.NewLocalProvider(tts.LocalConfig{}))

	provider, err := tts.Get(*providerName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	est := provider.Estimate(text)
	fmt.Printf("Provider:   %s\n", est.Provider)
	fmt.Printf("Characters: %d\n", est.Characters)
	fmt.Printf("Words:      %d\n", est.Words)
	fmt.Printf("Duration:   %s\n", (time.Duration(est.EstimatedDuration * float64(time.Second))).Round(time.Second))
	fmt.Printf("Cost:       %.4f %s\n", est.EstimatedCost, est.Currency)
}
