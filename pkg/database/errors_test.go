package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization", err: &pq.Error{Code: "40001"}, want: true},
		{name: "deadlock wrapped", err: fmt.Errorf("insert slot: %w", &pq.Error{Code: "40P01"}), want: true},
		{name: "lock timeout", err: &pq.Error{Code: "55P03"}, want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
