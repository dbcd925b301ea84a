package slug

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		expected string
	}{
		{name: "simple", parts: []string{"Backend Dev", "Acme"}, expected: "backend-dev-acme"},
		{name: "punctuation collapsed", parts: []string{"C++ / Go Engineer!"}, expected: "c-go-engineer"},
		{name: "diacritics stripped", parts: []string{"Développeur", "Hà Nội"}, expected: "developpeur-ha-noi"},
		{name: "empty input", parts: []string{"   "}, expected: "job"},
		{name: "digits kept", parts: []string{"L4 SRE 2024"}, expected: "l4-sre-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Make(tt.parts...))
		})
	}
}

type fakeChecker struct {
	taken map[string]bool
}

func (f *fakeChecker) SlugExists(_ context.Context, s string) (bool, error) {
	return f.taken[s], nil
}

func TestMakeUnique(t *testing.T) {
	checker := &fakeChecker{taken: map[string]bool{
		"backend-dev-acme":   true,
		"backend-dev-acme-2": true,
	}}

	got, err := MakeUnique(context.Background(), checker, "Backend Dev", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "backend-dev-acme-3", got)

	got, err = MakeUnique(context.Background(), checker, "Fresh", "Role")
	require.NoError(t, err)
	assert.Equal(t, "fresh-role", got)
}
