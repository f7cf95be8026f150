// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"ab", "abc", 1},
		{"abc", "bac", 2},
		{"kitten", "sitting", 3},
		{"release", "relase", 1},
		{"set-time", "settime", 1},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			if got := levenshtein(test.a, test.b); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if got := levenshtein(test.b, test.a); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.b, test.a, got, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "status"},
		{Name: "set-time"},
		{Name: "set-message"},
		{Name: "send"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"stauts", "status"},
		{"settime", "set-time"},
		{"sned", "send"},
		{"xyzzyplugh", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
	flagSet.Bool("json", false, "")
	flagSet.String("socket", "", "")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--jsno"}, "--json"},
		{[]string{"--sockt=/x"}, "--socket"},
		{[]string{"--json", "--sockett"}, "--socket"},
		{[]string{"--completely-different"}, ""},
		{[]string{"--", "--jsno"}, ""},
	}
	for _, test := range tests {
		if got := suggestFlag(test.args, flagSet); got != test.want {
			t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}
