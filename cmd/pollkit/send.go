package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/pollkit"
)

// sendCmd issues a single HTTP request.
var sendCmd = &cobra.Command{
	Use:   "send METHOD URL",
	Short: "Send a single HTTP request",
	Long: `Send a single HTTP request and print the response body to stdout.

A summary line (status, size, latency) is written to stderr. The command
exits non-zero unless the response status is exactly 200.

At most one body flag may be given:
  --data        raw body, sent with --content-type (may be empty)
  --json        JSON body, sent as application/json
  --form k=v    URL-encoded form field, repeatable

Example:
  pollkit send GET https://httpbin.org/get
  pollkit send GET https://api.example.com/me --token $TOKEN
  pollkit send POST https://httpbin.org/post --json '{"name":"nightly"}'
  pollkit send POST https://httpbin.org/post --form user=alice --form role=admin`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	f := sendCmd.Flags()
	f.StringArrayP("header", "H", nil, `request header "Key: Value" (repeatable)`)
	f.String("token", "", "bearer token for the Authorization header")
	f.String("data", "", "raw request body")
	f.String("content-type", "", "content type sent with --data")
	f.StringArray("form", nil, "form field key=value (repeatable)")
	f.String("json", "", "JSON request body")
	f.BoolP("verbose", "v", false, "enable debug logging")
	sendCmd.MarkFlagsMutuallyExclusive("data", "json", "form")
}

func runSend(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	req, err := buildSendRequest(cmd, strings.ToUpper(args[0]), args[1])
	if err != nil {
		return err
	}

	// usage is only useful for argument errors
	cmd.SilenceUsage = true

	sender, err := pollkit.NewSender(pollkit.WithLogger(newLogger(verbose)))
	if err != nil {
		return fmt.Errorf("failed to create sender: %w", err)
	}
	defer sender.Close()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := sender.Do(ctx, req)

	if res.Response != nil {
		if _, err := cmd.OutOrStdout().Write(res.Response.Body); err != nil {
			return fmt.Errorf("failed to write body: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d %s, %s in %s\n",
			req.Method(), req.URL(),
			res.Response.StatusCode, http.StatusText(res.Response.StatusCode),
			humanize.Bytes(uint64(len(res.Response.Body))),
			res.Response.Latency.Round(time.Millisecond),
		)
	}

	if res.Outcome != pollkit.OutcomeSuccess {
		return fmt.Errorf("request %s: %w", res.Outcome, res.Err)
	}
	return nil
}

// buildSendRequest assembles a request from the send flags.
func buildSendRequest(cmd *cobra.Command, method, rawURL string) (pollkit.Request, error) {
	flags := cmd.Flags()
	headerValues, _ := flags.GetStringArray("header")
	token, _ := flags.GetString("token")
	data, _ := flags.GetString("data")
	contentType, _ := flags.GetString("content-type")
	formValues, _ := flags.GetStringArray("form")
	jsonBody, _ := flags.GetString("json")

	headers, err := parseHeaderFlags(headerValues)
	if err != nil {
		return pollkit.Request{}, err
	}

	opts := []pollkit.RequestOption{}
	if len(headers) > 0 {
		opts = append(opts, pollkit.WithHeaders(headers...))
	}
	if token != "" {
		opts = append(opts, pollkit.WithBearerToken(token))
	}

	switch {
	case flags.Changed("data"):
		opts = append(opts, pollkit.WithBody([]byte(data), contentType))
	case flags.Changed("json"):
		opts = append(opts, pollkit.WithBody([]byte(jsonBody), pollkit.ContentTypeJSON))
	case flags.Changed("form"):
		form := url.Values{}
		for _, kv := range formValues {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return pollkit.Request{}, fmt.Errorf("invalid form field %q, expected key=value", kv)
			}
			form.Add(k, v)
		}
		opts = append(opts, pollkit.WithBody([]byte(form.Encode()), pollkit.ContentTypeForm))
	case flags.Changed("content-type"):
		return pollkit.Request{}, errors.New("--content-type requires --data")
	}

	return pollkit.NewRequest(method, rawURL, opts...)
}

// cmdContext returns the command's context, or Background when run outside
// ExecuteContext.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
