package covidpipe

import (
	"fmt"
	"sync"
	"time"
)

// ValidReferralCode checks a 10 digit referral code: all digits, last one a
// Luhn mod-10 check digit. Pure, no normalization beyond that.
func ValidReferralCode(code string) bool {
	if len(code) != 10 {
		return false
	}
	sum := 0
	double := true
	for i := len(code) - 2; i >= 0; i-- {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	last := code[len(code)-1]
	if last < '0' || last > '9' {
		return false
	}
	return (sum+int(last-'0'))%10 == 0
}

func luhnCheckDigit(payload string) byte {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		digit := int(payload[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}

// BarcodeGenerator produces unique-by-second barcodes for internally created
// substances, keyed on a single character type tag. Generating twice within
// the same second for the same tag is an error, never a silent overwrite.
type BarcodeGenerator struct {
	typeTag byte
	clock   func() time.Time

	mutex  sync.Mutex
	issued map[string]struct{}
}

func NewBarcodeGenerator(typeTag byte, clock func() time.Time) *BarcodeGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &BarcodeGenerator{
		typeTag: typeTag,
		clock:   clock,
		issued:  map[string]struct{}{},
	}
}

// Next returns a fresh 10 digit Luhn terminated barcode of the form
// <tag digit><second-of-day, compacted><check digit>.
func (g *BarcodeGenerator) Next() (string, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	now := g.clock().UTC()
	payload := fmt.Sprintf("%c%08d", g.typeTag, now.Unix()%100000000)
	if _, taken := g.issued[payload]; taken {
		return "", fmt.Errorf("%w: %s", ErrBarcodeCollision, payload)
	}
	g.issued[payload] = struct{}{}
	return payload + string(luhnCheckDigit(payload)), nil
}
