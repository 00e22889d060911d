package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		name      string
		subject   string
		mods      string
		assertion string
		args      []string
		want      string
	}{
		{"plain", "2", "to", "equal", []string{"2"}, "Expected 2 to equal 2"},
		{"negated", "1", "to not", "equal", []string{"2"}, "Expected 1 to not equal 2"},
		{"type", "'foo'", "to be", "a string", nil, "Expected 'foo' to be a string"},
		{"that equals", "2", "to be a number that", "equals", []string{"2"}, "Expected 2 to be a number that equals 2"},
		{"has becomes have", "[1, 2, 3]", "to has", "lengthOf", []string{"3"}, "Expected [1, 2, 3] to have lengthOf 3"},
		{"typed that has kept", "[1, 2, 3]", "to be an array that has", "lengthOf", []string{"3"}, "Expected [1, 2, 3] to be an array that has lengthOf 3"},
		{"duplicate leading word", "[1, 2, 3]", "to have", "have length", []string{"3"}, "Expected [1, 2, 3] to have length 3"},
		{"property comma", "{a: 1}", "to have", "property 'a'", []string{"1"}, "Expected {a: 1} to have property 'a', 1"},
		{"own property", "{a: 1}", "to have own", "own property 'a'", nil, "Expected {a: 1} to have own property 'a'"},
		{"is becomes be", "5", "to is", "above", []string{"3"}, "Expected 5 to be above 3"},
		{"filler dropped", "5", "to which does but be", "below", []string{"9"}, "Expected 5 to be below 9"},
		{"dedupe", "1", "to be be", "ok", nil, "Expected 1 to be ok"},
		{"missing to", "1", "not", "ok", nil, "Expected 1 to not ok"},
		{"empty mods", "1", "", "ok", nil, "Expected 1 to ok"},
		{"at least", "5", "to be at", "at least", []string{"5"}, "Expected 5 to be at least 5"},
		{"multiple args", "1.5", "to be", "closeTo", []string{"1", "0.6"}, "Expected 1.5 to be closeTo 1, 0.6"},
		{"that does removed", "x", "to that does", "match", nil, "Expected x to match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildMessage(tt.subject, tt.mods, tt.assertion, tt.args...))
		})
	}
}
