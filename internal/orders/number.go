package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const (
	orderNumberPrefix  = "SKR"
	trackingPrefix     = "SKR-TRK-"
	orderSuffixLength  = 5
	trackingCodeLength = 12

	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateOrderNumber produces a human-readable order number of the form
// SKR-YYYYMMDD-XXXXX. The random suffix comes from crypto/rand; uniqueness is
// enforced by the database, with the caller retrying on collision.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix, err := randomToken(orderSuffixLength)
	if err != nil {
		return "", fmt.Errorf("generate order number suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format("20060102"), suffix), nil
}

// GenerateTrackingNumber produces a shipment tracking reference when an order
// moves into fulfillment.
func GenerateTrackingNumber() (string, error) {
	code, err := randomToken(trackingCodeLength)
	if err != nil {
		return "", fmt.Errorf("generate tracking number: %w", err)
	}
	return trackingPrefix + code, nil
}

var orderNumberPattern = regexp.MustCompile(`^SKR-\d{8}-[A-Z0-9]{5}$`)

// IsValidOrderNumber reports whether the value matches the order number shape.
func IsValidOrderNumber(value string) bool {
	return orderNumberPattern.MatchString(value)
}

func randomToken(length int) (string, error) {
	max := big.NewInt(int64(len(numberAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = numberAlphabet[n.Int64()]
	}
	return string(out), nil
}
