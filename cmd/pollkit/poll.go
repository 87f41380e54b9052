package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/pollkit"
	"github.com/jpalmerr/pollkit/config"
)

// pollCmd polls a URL until a condition holds.
var pollCmd = &cobra.Command{
	Use:   "poll URL",
	Short: "Poll a URL until its response satisfies a condition",
	Long: `Poll a URL with GET requests until the response satisfies --until, the
--timeout budget runs out, or the server returns a status of 400 or above.

Every poll event is printed to stdout as one JSON line. A final summary is
written to stderr. The command exits zero only when the condition was met.

Conditions (--until):
  always               first 200 response completes the poll (default)
  contains:TEXT        response contains TEXT
  regex:PATTERN        response matches PATTERN
  json:PATH            JSON field at PATH exists and is not null
  json:PATH=VALUE      JSON field at PATH equals VALUE

Example:
  pollkit poll https://ci.example.com/jobs/42 --until json:status=done --timeout 2m
  pollkit poll https://api.example.com/ready --until contains:READY --frequency 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)

	f := pollCmd.Flags()
	f.String("until", "always", "completion condition")
	f.Duration("timeout", 60*time.Second, "total polling budget")
	f.Float64("frequency", 2, "polls per second")
	f.String("token", "", "bearer token for the Authorization header")
	f.String("done-event", "", "name of the completion event (default pollDone)")
	f.String("id", "", "poll identifier carried by every event (default random)")
	f.StringArrayP("header", "H", nil, `request header "Key: Value" (repeatable)`)
	f.BoolP("verbose", "v", false, "enable debug logging")
}

func runPoll(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	opts, err := buildPollOptions(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	verbose, _ := cmd.Flags().GetBool("verbose")
	sender, err := pollkit.NewSender(pollkit.WithLogger(newLogger(verbose)))
	if err != nil {
		return fmt.Errorf("failed to create sender: %w", err)
	}
	defer sender.Close()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// listeners run sequentially on the chain goroutine
	enc := json.NewEncoder(cmd.OutOrStdout())
	var writeErr error
	opts = append(opts, pollkit.WithListener(func(ev pollkit.Event) {
		if writeErr != nil {
			return
		}
		writeErr = enc.Encode(recordFromEvent("", rawURL, ev))
	}))

	p, err := sender.PollUntil(ctx, rawURL, opts...)
	if err != nil {
		return err
	}
	res := p.Wait()
	if writeErr != nil {
		return fmt.Errorf("failed to write event: %w", writeErr)
	}

	summary := fmt.Sprintf("poll %s: %s after %d attempt(s)", res.ID, res.Outcome, res.Attempts)
	if res.Response != nil {
		summary += fmt.Sprintf(", last response %d (%s)",
			res.Response.StatusCode, humanize.Bytes(uint64(len(res.Response.Body))))
	}
	fmt.Fprintln(cmd.ErrOrStderr(), summary)

	switch res.Outcome {
	case pollkit.PollDone:
		return nil
	case pollkit.PollTimeout:
		return errors.New("poll timed out")
	default:
		return fmt.Errorf("poll %s: %w", res.Outcome, res.Err)
	}
}

// buildPollOptions converts the poll flags into poll options.
func buildPollOptions(cmd *cobra.Command) ([]pollkit.PollOption, error) {
	flags := cmd.Flags()
	until, _ := flags.GetString("until")
	timeout, _ := flags.GetDuration("timeout")
	frequency, _ := flags.GetFloat64("frequency")
	token, _ := flags.GetString("token")
	doneEvent, _ := flags.GetString("done-event")
	id, _ := flags.GetString("id")
	headerValues, _ := flags.GetStringArray("header")

	uc, err := config.ParseUntil(until)
	if err != nil {
		return nil, fmt.Errorf("invalid --until: %w", err)
	}
	predicate, err := config.BuildPredicate(uc)
	if err != nil {
		return nil, fmt.Errorf("invalid --until: %w", err)
	}

	opts := []pollkit.PollOption{
		pollkit.WithTimeout(timeout),
		pollkit.WithFrequency(frequency),
	}
	if predicate != nil {
		opts = append(opts, pollkit.WithPredicate(predicate))
	}
	if token != "" {
		opts = append(opts, pollkit.WithAuthToken(token))
	}
	if doneEvent != "" {
		opts = append(opts, pollkit.WithDoneEvent(doneEvent, nil))
	}
	if id != "" {
		opts = append(opts, pollkit.WithPollID(id))
	}
	if len(headerValues) > 0 {
		headers, err := parseHeaderFlags(headerValues)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pollkit.WithPollHeaders(headers...))
	}
	return opts, nil
}
