package identifier

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^flow-\d+-\w+$`)

	id := New("flow")

	assert.Regexp(t, pattern, id)
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool)

	for range 1000 {
		id := New("step")
		assert.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}

func TestNewBackupIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^backup_\d+_[0-9a-f]+$`)

	id := NewBackupID()

	assert.Regexp(t, pattern, id)
}
