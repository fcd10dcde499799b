package integration

// EAN13Length is the number of digits of an EAN-13 barcode
const EAN13Length = 13

// IsValidEAN13 reports whether code is a well-formed EAN-13 barcode: exactly
// 13 ASCII digits, not all zero, with a matching check digit. Digits at even
// positions weigh 1 and digits at odd positions weigh 3.
func IsValidEAN13(code string) bool {
	if len(code) != EAN13Length {
		return false
	}

	allZero := true
	for i := 0; i < EAN13Length; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != '0' {
			allZero = false
		}
	}
	if allZero {
		return false
	}

	sum := 0
	for i := 0; i < EAN13Length-1; i++ {
		d := int(code[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	check := (10 - sum%10) % 10
	return check == int(code[EAN13Length-1]-'0')
}
