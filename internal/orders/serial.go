package orders

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// serialLayout is the timestamp portion of an order serial.
const serialLayout = "20060102150405"

// NewSerial formats <prefix><YYYYMMDDHHMMSS><3 random digits>.
func NewSerial(prefix string, now time.Time) string {
	return fmt.Sprintf("%s%s%03d", prefix, now.Format(serialLayout), rand.IntN(1000))
}
