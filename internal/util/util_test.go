package util

import (
	"errors"
	"testing"
	"time"

	"github.com/JoseManuelPS/KuLo/internal/kuloerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"10s": 10 * time.Second,
		"5m":  5 * time.Minute,
		"1h":  time.Hour,
		"2d":  48 * time.Hour,
		"10S": 10 * time.Second,
	}

	for input, want := range cases {
		got, err := ParseDuration(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, input := range []string{"", "10", "10x", "-5m", "5", "m5"} {
		_, err := ParseDuration(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, kuloerr.ErrInvalidDuration), input)
	}
}

func TestBackoff(t *testing.T) {
	cases := map[int]time.Duration{
		0:  time.Second,
		1:  2 * time.Second,
		5:  32 * time.Second,
		6:  60 * time.Second,
		10: 60 * time.Second,
	}
	for n, want := range cases {
		assert.Equal(t, want, Backoff(n))
	}
}

func TestCompilePatterns(t *testing.T) {
	patterns, err := CompilePatterns("frontend-.*,backend-.*")
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	assert.True(t, MatchesAny("frontend-abc", patterns))
	assert.False(t, MatchesAny("database-xyz", patterns))

	empty, err := CompilePatterns("")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.False(t, MatchesAny("anything", empty))
}

func TestCompilePatternsInvalid(t *testing.T) {
	_, err := CompilePatterns("(unclosed")
	require.Error(t, err)
}

func TestIncludeExcludeSemantics(t *testing.T) {
	include, err := CompilePatterns("api-.*")
	require.NoError(t, err)
	exclude, err := CompilePatterns("api-test")
	require.NoError(t, err)

	admit := func(name string) bool {
		if len(include) > 0 && !MatchesAny(name, include) {
			return false
		}
		if MatchesAny(name, exclude) {
			return false
		}
		return true
	}

	assert.False(t, admit("api-test-7"))
	assert.True(t, admit("api-prod-1"))
	assert.False(t, admit("web-1"))
}

func TestIsRegexPattern(t *testing.T) {
	assert.False(t, IsRegexPattern("dev-team1"))
	assert.True(t, IsRegexPattern("dev-.*"))
	assert.True(t, IsRegexPattern("^prod$"))
}
