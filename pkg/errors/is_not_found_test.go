package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			"Generic NotFound",
			errors.NotFound("not found"),
			true,
		},
		{
			"Case NotFound",
			errors.CaseNotFound("us-410-113"),
			true,
		},
		{
			"Edge endpoint missing",
			errors.New(errors.ErrCodeEdgeEndpointMissing, "cited case not found"),
			true,
		},
		{
			"No snapshot published",
			errors.New(errors.CodeNoSnapshot, "no score snapshot published"),
			true,
		},
		{
			"Internal Error",
			errors.Internal("internal error"),
			false,
		},
		{
			"Wrapped NotFound",
			errors.Wrap(errors.NotFound("not found"), errors.CodeInternal, "wrapped"),
			true,
		},
		{
			"Plain error",
			fmt.Errorf("plain error"),
			false,
		},
		{
			"Nil error",
			nil,
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, errors.IsNotFound(tc.err))
		})
	}
}

func TestIsValidation(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			"Generic Validation",
			errors.Validation("malformed date"),
			true,
		},
		{
			"Self citation",
			errors.New(errors.CodeSelfCitation, "case cannot cite itself"),
			true,
		},
		{
			"Invalid event",
			errors.New(errors.CodeEventInvalid, "blank citing id"),
			true,
		},
		{
			"Wrapped validation",
			errors.Wrap(errors.Validation("bad metadata"), errors.CodeInternal, "apply failed"),
			true,
		},
		{
			"Not found is not validation",
			errors.CaseNotFound("x"),
			false,
		},
		{
			"Nil error",
			nil,
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, errors.IsValidation(tc.err))
		})
	}
}
