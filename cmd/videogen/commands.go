package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/maauso/videogen-api/internal/generator"
	"github.com/maauso/videogen-api/internal/task"
)

// errUsage marks invalid command lines.
var errUsage = errors.New("usage")

// videoService is the subset of task.Service the commands use.
type videoService interface {
	Create(ctx context.Context, req generator.Request) (generator.Result, error)
	Refresh(ctx context.Context, taskID, provider string) (generator.TaskStatus, *task.Record, error)
	Cancel(ctx context.Context, taskID, provider string) (string, bool, error)
	Providers() []generator.ProviderInfo
}

func execute(ctx context.Context, svc videoService, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "generate":
		return generate(ctx, svc, rest, out)
	case "status":
		return status(ctx, svc, rest, out)
	case "cancel":
		return cancel(ctx, svc, rest, out)
	case "providers":
		return printJSON(out, svc.Providers())
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func generate(ctx context.Context, svc videoService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		req      generator.Request
		kind     string
		audio    bool
		extend   bool
		wait     bool
		interval time.Duration
		timeout  time.Duration
	)
	fs.StringVarP(&kind, "type", "t", string(generator.KindTextToVideo), "text-to-video or image-to-video")
	fs.StringVarP(&req.Prompt, "prompt", "p", "", "text prompt")
	fs.StringSliceVarP(&req.SourceImages, "image", "i", nil, "source image URL (repeatable)")
	fs.IntVarP(&req.DurationSeconds, "duration", "d", generator.DefaultDurationSeconds, "duration in seconds")
	fs.StringVar(&req.AspectRatio, "aspect-ratio", generator.DefaultAspectRatio, "aspect ratio such as 16:9")
	fs.StringVar(&req.Quality, "quality", generator.DefaultQuality, "resolution such as 720p")
	fs.BoolVar(&audio, "audio", false, "ask the provider to generate audio")
	fs.BoolVar(&extend, "prompt-extend", false, "let the provider rewrite the prompt")
	fs.StringVar(&req.Options.ShotType, "shot-type", "", "single or multi")
	fs.StringVar(&req.Options.AudioURL, "audio-url", "", "driving audio track URL")
	fs.StringVar(&req.Options.CallbackURL, "callback-url", "", "webhook URL")
	fs.BoolVarP(&wait, "wait", "w", false, "poll until the task finishes")
	fs.DurationVar(&interval, "interval", 5*time.Second, "poll interval with --wait")
	fs.DurationVar(&timeout, "timeout", 15*time.Minute, "give up waiting after this long")

	if err := fs.Parse(args); err != nil {
		return helpIsNotError(err)
	}
	req.Kind = generator.Kind(kind)
	if req.Prompt == "" && fs.NArg() > 0 {
		req.Prompt = fs.Arg(0)
	}
	if fs.Changed("audio") {
		req.Options.GenerateAudio = &audio
	}
	if fs.Changed("prompt-extend") {
		req.Options.PromptExtend = &extend
	}

	res, err := svc.Create(ctx, req)
	if err != nil {
		return err
	}
	if !wait {
		return printJSON(out, res)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := waitForTask(ctx, svc, res.TaskID, res.Provider, interval)
	if err != nil {
		return err
	}
	return printJSON(out, st)
}

func status(ctx context.Context, svc videoService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(out)
	provider := fs.String("provider", "", "provider that owns the task")
	if err := fs.Parse(args); err != nil {
		return helpIsNotError(err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: status <task-id> --provider NAME", errUsage)
	}

	st, _, err := svc.Refresh(ctx, fs.Arg(0), *provider)
	if err != nil {
		return err
	}
	return printJSON(out, st)
}

func cancel(ctx context.Context, svc videoService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(out)
	provider := fs.String("provider", "", "provider that owns the task")
	if err := fs.Parse(args); err != nil {
		return helpIsNotError(err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: cancel <task-id> --provider NAME", errUsage)
	}

	routed, ok, err := svc.Cancel(ctx, fs.Arg(0), *provider)
	if err != nil {
		return err
	}
	return printJSON(out, map[string]any{"provider": routed, "taskId": fs.Arg(0), "cancelled": ok})
}

// waitForTask polls until the task reaches a terminal status.
func waitForTask(ctx context.Context, svc videoService, taskID, provider string, interval time.Duration) (generator.TaskStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, _, err := svc.Refresh(ctx, taskID, provider)
		if err != nil {
			return generator.TaskStatus{}, err
		}
		if st.Status.IsTerminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, fmt.Errorf("wait for task %s: %w", taskID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// helpIsNotError turns --help into a clean exit.
func helpIsNotError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
