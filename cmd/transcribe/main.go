package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/eleven-am/voice-subtitles/internal/audio"
	"github.com/eleven-am/voice-subtitles/internal/batch"
	"github.com/eleven-am/voice-subtitles/internal/bootstrap"
	"github.com/eleven-am/voice-subtitles/internal/subtitle"
	"github.com/eleven-am/voice-subtitles/internal/transcription"
)

func main() {
	var (
		format      = flag.String("format", "srt", "output format: srt, vtt, txt or json")
		output      = flag.String("o", "", "output file (default: input name with the format's extension, - for stdout)")
		apiKey      = flag.String("api-key", "", "transcription API key (default: SILICONFLOW_API_KEY)")
		concurrency = flag.Int("c", 0, "maximum concurrent transcription calls")
		verbose     = flag.Bool("v", false, "log progress to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <audio file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatal("load config: ", err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	key := *apiKey
	if key == "" {
		key = cfg.ServerAPIKey
	}
	cred, err := transcription.ResolveCredential(key, false, "")
	if err != nil {
		log.Fatal("no API key: pass -api-key or set SILICONFLOW_API_KEY")
	}

	data, err := os.ReadFile(input)
	if err != nil {
		log.Fatal("read input: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chunker := audio.NewChunker(bootstrap.ChunkerOptions(cfg), logger)
	split, err := chunker.Split(ctx, data)
	if err != nil {
		log.Fatal("segment audio: ", err)
	}
	logger.Info("audio segmented", "chunks", len(split.Chunks), "duration_ms", split.DurationMs)

	svc := transcription.NewClient(bootstrap.ProvideTranscriptionConfig(cfg), logger)
	orchestrator := bootstrap.ProvideOrchestrator(svc, cfg, nil, logger)

	raw, err := orchestrator.Run(ctx, batch.Job{
		Chunks:         split.Chunks,
		MaxConcurrency: *concurrency,
		OnProgress: func(p batch.Progress) {
			logger.Info("progress", "completed", p.Completed, "total", p.Total, "failed", p.Failed)
		},
	}, cred)
	if err != nil {
		log.Fatal("transcribe: ", err)
	}
	result := batch.NewResult(raw)

	body, ext, err := render(*format, result)
	if err != nil {
		log.Fatal(err)
	}

	dest := *output
	if dest == "" {
		dest = strings.TrimSuffix(input, filepath.Ext(input)) + ext
	}
	if dest == "-" {
		fmt.Print(body)
		return
	}
	if err := os.WriteFile(dest, []byte(body), 0o644); err != nil {
		log.Fatal("write output: ", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d cues (%d chunks) to %s\n", result.TotalChunks, result.OriginalChunks, dest)
}

func render(format string, result batch.Result) (string, string, error) {
	if format == "json" {
		b, err := json.MarshalIndent(result, "", "  ")
		return string(b) + "\n", ".json", err
	}
	f, err := subtitle.ParseFormat(format)
	if err != nil {
		return "", "", err
	}
	body, err := subtitle.Render(f, result.Chunks)
	return body, f.Extension(), err
}
