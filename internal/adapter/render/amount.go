package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	cnDigits   = [...]string{"零", "壹", "贰", "叁", "肆", "伍", "陆", "柒", "捌", "玖"}
	cnUnits    = [...]string{"", "拾", "佰", "仟"}
	cnSections = [...]string{"", "万", "亿", "万亿"}
)

// ChineseAmount spells an amount in uppercase Chinese financial numerals,
// e.g. 1234.5 becomes 壹仟贰佰叁拾肆元伍角.
func ChineseAmount(amount decimal.Decimal) string {
	amount = amount.Abs().Round(2)
	if amount.IsZero() {
		return "零元整"
	}

	intPart, fracPart, _ := strings.Cut(amount.StringFixed(2), ".")
	var b strings.Builder
	b.WriteString(chineseInteger(intPart))
	b.WriteString("元")

	jiao, fen := fracPart[0]-'0', fracPart[1]-'0'
	if jiao == 0 && fen == 0 {
		b.WriteString("整")
		return b.String()
	}
	if jiao != 0 {
		b.WriteString(cnDigits[jiao] + "角")
	}
	if fen != 0 {
		b.WriteString(cnDigits[fen] + "分")
	}
	return b.String()
}

func chineseInteger(digits string) string {
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return cnDigits[0]
	}

	var b strings.Builder
	pendingZero := false
	sectionHasDigit := false
	for i := 0; i < len(digits); i++ {
		d := digits[i] - '0'
		pos := len(digits) - 1 - i
		unit, section := pos%4, pos/4

		if d == 0 {
			pendingZero = true
		} else {
			if pendingZero {
				b.WriteString(cnDigits[0])
				pendingZero = false
			}
			if d == 1 && unit == 1 && i == 0 {
				b.WriteString(cnUnits[1])
			} else {
				b.WriteString(cnDigits[d] + cnUnits[unit])
			}
			sectionHasDigit = true
		}

		if unit == 0 {
			if sectionHasDigit && section > 0 && section < len(cnSections) {
				b.WriteString(cnSections[section])
			}
			sectionHasDigit = false
		}
	}
	return b.String()
}

// FormatAmount renders an amount as ¥ 1,234.50.
func FormatAmount(amount decimal.Decimal) string {
	s := amount.Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "¥ " + sign + b.String() + "." + fracPart
}
