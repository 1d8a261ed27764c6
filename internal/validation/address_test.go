package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"mixed case", "0x8db6B632D743aef641146DC943acb64957155388", true},
		{"lower case", "0x8db6b632d743aef641146dc943acb64957155388", true},
		{"upper case body", "0x8DB6B632D743AEF641146DC943ACB64957155388", true},
		{"upper case prefix", "0X8db6B632D743aef641146DC943acb64957155388", true},
		{"zero address", "0x0000000000000000000000000000000000000000", true},
		{"empty", "", false},
		{"prefix only", "0x", false},
		{"short", "0x00", false},
		{"too long", "0x8db6B632D743aef641146DC943acb649571553880", false},
		{"too short", "0x8db6B632D743aef641146DC943acb6495715538", false},
		{"no prefix", "8db6B632D743aef641146DC943acb64957155388", false},
		{"non hex", "0x8db6B632D743aef641146DC943acb6495715538g", false},
		{"whitespace", " 0x8db6B632D743aef641146DC943acb64957155388", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAddress(tt.candidate))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t,
		"0x8db6b632d743aef641146dc943acb64957155388",
		NormalizeAddress("0x8db6B632D743aef641146DC943acb64957155388"),
	)
}

func TestChecksumAddress(t *testing.T) {
	lower := "0x8db6b632d743aef641146dc943acb64957155388"
	checksummed := ChecksumAddress(lower)

	assert.True(t, IsValidAddress(checksummed))
	assert.Equal(t, lower, strings.ToLower(checksummed))
}

func hexBody(n int) gopter.Gen {
	return gen.RegexMatch(fmt.Sprintf("[0-9a-fA-F]{%d}", n))
}

func TestIsValidAddress_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any 40 hex digits after 0x is valid", prop.ForAll(
		func(body string) bool {
			return IsValidAddress("0x" + body)
		},
		hexBody(40),
	))

	properties.Property("validity ignores letter case", prop.ForAll(
		func(body string) bool {
			return IsValidAddress("0x"+strings.ToUpper(body)) && IsValidAddress("0x"+strings.ToLower(body))
		},
		hexBody(40),
	))

	properties.Property("wrong length hex is invalid", prop.ForAll(
		func(n int) bool {
			return !IsValidAddress("0x" + strings.Repeat("a", n))
		},
		gen.IntRange(0, 80).SuchThat(func(n int) bool { return n != 40 }),
	))

	properties.Property("unprefixed hex is invalid", prop.ForAll(
		func(body string) bool {
			return !IsValidAddress(body)
		},
		hexBody(40),
	))

	properties.TestingRun(t)
}
