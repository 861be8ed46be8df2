package orders

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber mints a human-readable order number like
// "ORD-MB3K9QZ1-7F2A": base-36 millisecond timestamp plus a 4-char random
// suffix. The orders table carries a unique index as the real collision
// guard; a true collision surfaces as an insert error.
func NewOrderNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return "ORD-" + ts + "-" + suffix
}
