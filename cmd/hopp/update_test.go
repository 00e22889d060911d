package main

import (
	"testing"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAvailable(t *testing.T) {
	release := &selfupdate.Release{Version: semver.MustParse("1.4.0")}

	tests := []struct {
		name    string
		current string
		want    bool
	}{
		{"older", "1.3.2", true},
		{"same", "1.4.0", false},
		{"newer", "1.5.0", false},
		{"v prefix", "v1.2.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := updateAvailable(tt.current, release, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := updateAvailable("dev", release, true)
	assert.ErrorIs(t, err, errDevBuildUpdate)

	_, err = updateAvailable("1.0.0", nil, false)
	assert.ErrorIs(t, err, errNoUpdateRelease)

	_, err = updateAvailable("not-a-version", release, true)
	assert.Error(t, err)
}
