package pollkit

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Predicate decides from the text of a 200 response whether polling is complete.
//
// Predicates are called on the poll goroutine, once per successful response.
// A panicking predicate is recovered and ends its chain without an event.
type Predicate func(text string) bool

// Always is the default [Predicate]: the first 200 response completes the poll.
var Always Predicate = func(string) bool { return true }

// Contains returns a [Predicate] satisfied when the response text contains
// substr (case-sensitive).
//
// Example:
//
//	pollkit.WithPredicate(pollkit.Contains("COMPLETE"))
func Contains(substr string) Predicate {
	return func(text string) bool {
		return strings.Contains(text, substr)
	}
}

// Matches returns a [Predicate] satisfied when the response text matches the
// regular expression pattern.
//
// Returns an error if the pattern is invalid.
func Matches(pattern string) (Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return func(text string) bool {
		return re.MatchString(text)
	}, nil
}

// MustMatch is like [Matches] but panics if the pattern is invalid.
//
// Use this for compile-time constant patterns. For runtime patterns, use
// [Matches] instead.
func MustMatch(pattern string) Predicate {
	p, err := Matches(pattern)
	if err != nil {
		panic("pollkit: invalid regex pattern: " + err.Error())
	}
	return p
}

// JSONField returns a [Predicate] satisfied when the response is valid JSON
// and the value at path equals want.
//
// The path uses gjson syntax, so "job.state" navigates to
// {"job": {"state": "done"}} and "steps.#(name==\"build\").state" selects
// from arrays. Values are compared by their string form: strings as-is,
// numbers and booleans as written in the document.
//
// Example:
//
//	// Done when {"job": {"state": "finished"}}
//	pollkit.WithPredicate(pollkit.JSONField("job.state", "finished"))
func JSONField(path, want string) Predicate {
	return func(text string) bool {
		if !gjson.Valid(text) {
			return false
		}
		v := gjson.Get(text, path)
		return v.Exists() && v.String() == want
	}
}

// JSONFieldExists returns a [Predicate] satisfied when the response is valid
// JSON and path resolves to a non-null value.
//
// Example:
//
//	// Done once the result URL has been published
//	pollkit.WithPredicate(pollkit.JSONFieldExists("result.url"))
func JSONFieldExists(path string) Predicate {
	return func(text string) bool {
		if !gjson.Valid(text) {
			return false
		}
		v := gjson.Get(text, path)
		return v.Exists() && v.Type != gjson.Null
	}
}

// AnyOf returns a [Predicate] satisfied when at least one of preds is.
// An empty AnyOf is never satisfied.
func AnyOf(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if p(text) {
				return true
			}
		}
		return false
	}
}

// AllOf returns a [Predicate] satisfied when every one of preds is.
// An empty AllOf is always satisfied.
func AllOf(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

// Not inverts a [Predicate].
func Not(p Predicate) Predicate {
	return func(text string) bool {
		return !p(text)
	}
}
