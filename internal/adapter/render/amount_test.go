package render

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestChineseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "零元整"},
		{"0.50", "零元伍角"},
		{"1", "壹元整"},
		{"10", "拾元整"},
		{"15", "拾伍元整"},
		{"110", "壹佰壹拾元整"},
		{"1234.5", "壹仟贰佰叁拾肆元伍角"},
		{"1001", "壹仟零壹元整"},
		{"10005", "壹万零伍元整"},
		{"100000", "拾万元整"},
		{"1000000.08", "壹佰万元捌分"},
		{"100000001", "壹亿零壹元整"},
		{"120000000", "壹亿贰仟万元整"},
		{"99.99", "玖拾玖元玖角玖分"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ChineseAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":          "¥ 0.00",
		"12.5":       "¥ 12.50",
		"1234.5":     "¥ 1,234.50",
		"1234567.89": "¥ 1,234,567.89",
		"100000":     "¥ 100,000.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(decimal.RequireFromString(in)), in)
	}
}
