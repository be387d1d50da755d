package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKeyError(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"misspelled field", "server.lisen", `did you mean "server.listen"`},
		{"misspelled section", "googel.client_id", `did you mean "google"`},
		{"unrelated field", "server.zzzzzzzzzz", `unknown config key "server.zzzzzzzzzz"`},
		{"bare section key", "logging", `must be a section`},
		{"unrelated section", "qqqqqqqqqq.x", `unknown config key "qqqqqqqqqq.x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildKeyError(tt.key)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("listen", "listen"))
	assert.Equal(t, 1, levenshtein("lisen", "listen"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

func TestClosestMatch_NoneWithinDistance(t *testing.T) {
	assert.Empty(t, closestMatch("completely_different", []string{"listen", "model"}))
}
