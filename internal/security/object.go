package security

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectName builds a randomized storage path for an uploaded file:
// a UTC timestamp plus a random suffix, keeping the original extension.
func ObjectName(originalName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(originalName))
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%d-%s%s", now.UTC().UnixMilli(), suffix, ext)
}
