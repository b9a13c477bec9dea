// Package identifier generates unique string IDs for BOS entities and
// backups without central coordination.
package identifier

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLength = 9

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// New returns an ID of the form <entity>-<epoch-ms>-<base36 suffix>.
// The epoch prefix keeps IDs sortable by creation time and the random
// suffix keeps concurrent generations unique enough for a single dataset.
func New(entity string) string {
	return fmt.Sprintf("%s-%d-%s", entity, time.Now().UnixMilli(), randomSuffix())
}

// NewBackupID returns a backup record ID of the form backup_<epoch-ms>_<random>.
func NewBackupID() string {
	random := strings.SplitN(uuid.NewString(), "-", 2)[0]

	return fmt.Sprintf("backup_%d_%s", time.Now().UnixMilli(), random)
}

func randomSuffix() string {
	var sb strings.Builder

	for range suffixLength {
		sb.WriteByte(base36[rand.IntN(len(base36))])
	}

	return sb.String()
}
