package grace_test

import (
	"fmt"
	"testing"

	"github.com/sre-norns/ags/pkg/grace"
	"github.com/stretchr/testify/require"
)

func TestActionableError(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")

	testCases := map[string]struct {
		given       grace.Error
		expectText  string
		expectCause error
	}{
		"raised": {
			given:      grace.RaiseError("geometry JSON", "empty input", "pass a JSON object"),
			expectText: "expected: geometry JSON, got: empty input; What to do: pass a JSON object",
		},
		"wrapped": {
			given:       grace.WrapError(cause, "geometry JSON", "`{`", "check the input"),
			expectText:  "expected: geometry JSON, got: `{` (unexpected end of JSON input); What to do: check the input",
			expectCause: cause,
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			require.EqualError(t, test.given, test.expectText)
			require.Equal(t, "geometry JSON", test.given.WhatExpected())
			if test.expectCause != nil {
				require.ErrorIs(t, test.given, test.expectCause)
			}
		})
	}
}
