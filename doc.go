// Package pollkit sends HTTP requests with callback-style outcomes and
// polls URLs until their response satisfies a predicate.
//
// pollkit is SDK-first: requests, senders and polls are configured with
// functional options, and requests are immutable once built so they can be
// reused across goroutines.
//
// # Quick Start
//
// Send a request and react to its outcome:
//
//	sender, _ := pollkit.NewSender()
//	defer sender.Close()
//
//	call, _ := sender.GetAuth(ctx, "https://api.example.com/me", token,
//	    func(text string) { fmt.Println(text) },
//	    func(resp *pollkit.Response) { log.Println("failed:", resp.StatusCode) },
//	)
//	<-call.Done()
//
// Or poll until a job finishes:
//
//	poll, _ := sender.PollUntil(ctx, "https://ci.example.com/jobs/42",
//	    pollkit.WithPredicate(pollkit.JSONField("state", "finished")),
//	    pollkit.WithDoneEvent("buildReady", jobID),
//	    pollkit.WithListener(func(ev pollkit.Event) { ui.Dispatch(ev.Name, ev) }),
//	)
//	result := poll.Wait()
//
// # Outcomes
//
// A response with status 200 is a success and its text is passed to the
// success callback. A status of 400 or above is a failure and the response
// is passed to the error callback. Every other status, and a request that
// never gets a status, invokes no callback at all. [Sender.Send] and
// [Sender.Do] expose the same classification as a [Result].
//
// # Poll Events
//
// A poll chain emits [EventSent] for every request and ends with one of
// [EventDone], [EventError] or [EventTimeout]. The timeout budget shrinks by
// the inter-poll delay after every unsatisfied response. Requests within a
// chain never overlap.
//
// # Architecture
//
// pollkit consists of several internal packages (under internal/):
//
//   - internal/poller: HTTP transport and the poll chain engine
//   - internal/store: In-memory latest-event store with pub/sub
//   - internal/server: HTTP API with Server-Sent Events and metrics
//   - internal/metrics: Prometheus collectors fed from poll events
//
// The internal packages are not part of the public API and may change
// without notice. The pollkit command in cmd/pollkit runs configured polls
// from a YAML file.
package pollkit
