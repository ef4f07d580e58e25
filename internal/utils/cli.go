package utils

import (
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// SplitStringIntoCommandAndArguments splits a shell line into a lowercased
// command and its arguments, honoring shell quoting.
func SplitStringIntoCommandAndArguments(line string) (string, []string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, errors.Wrap(err, "split command line")
	}
	if len(words) == 0 {
		return "", nil, errors.New("empty command")
	}
	return strings.ToLower(words[0]), words[1:], nil
}

// SplitPatterns splits a shell-quoted list of glob patterns, as passed to
// --files.
func SplitPatterns(list string) ([]string, error) {
	patterns, err := shellquote.Split(list)
	if err != nil {
		return nil, errors.Wrap(err, "split patterns")
	}
	return patterns, nil
}
