package generator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditCardPassesLuhn(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, err := Generate(Request{DataType: "CreditCard", Original: fmt.Sprintf("4111-%04d", i), Seed: "s"})
		require.NoError(t, err)
		assert.Len(t, v, 16)
		assert.True(t, LuhnValid(v), v)
	}
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, LuhnValid("4539578763621486"))
	assert.False(t, LuhnValid("4539578763621487"))
	assert.False(t, LuhnValid("4539x78763621486"))
}

func TestBusinessABNChecksum(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, err := Generate(Request{DataType: "BusinessABN", Original: fmt.Sprintf("abn-%d", i), Seed: "s"})
		require.NoError(t, err)
		require.Len(t, v, 11)
		assert.True(t, ABNValid(v), v)
	}
}

func TestABNValidKnownValues(t *testing.T) {
	assert.True(t, ABNValid("51824753556")) // well-known ATO example
	assert.False(t, ABNValid("51824753557"))
	assert.False(t, ABNValid("0182475355"))
}

func TestBusinessACNChecksum(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, err := Generate(Request{DataType: "BusinessACN", Original: fmt.Sprintf("acn-%d", i), Seed: "s"})
		require.NoError(t, err)
		require.Len(t, v, 9)
		assert.True(t, ACNValid(v), v)
	}
}

func TestACNValidKnownValues(t *testing.T) {
	assert.True(t, ACNValid("004085616")) // ASIC worked example
	assert.False(t, ACNValid("004085617"))
}

func TestNINOPattern(t *testing.T) {
	for i := 0; i < 200; i++ {
		v, err := Generate(Request{DataType: "NINO", Original: fmt.Sprintf("nino-%d", i), Seed: "s"})
		require.NoError(t, err)
		assert.Regexp(t, `^[ABCEGHJ-PRSTW-Z][ABCEGHJ-NPRSTW-Z]\d{6}[A-D]$`, v)
		assert.NotContains(t, []string{"BG", "GB", "KN", "NK", "NT", "TN", "ZZ"}, v[:2])
	}
}

func TestSortCodePattern(t *testing.T) {
	v, err := Generate(Request{DataType: "SortCode", Original: "12-34-56", Seed: "s"})
	require.NoError(t, err)
	assert.Regexp(t, `^\d{2}-\d{2}-\d{2}$`, v)
}

func TestVINExcludesAmbiguousLetters(t *testing.T) {
	v, err := Generate(Request{DataType: "VINNumber", Original: "WAUZZZ8V5KA123456", Seed: "s"})
	require.NoError(t, err)
	assert.Len(t, v, 17)
	assert.NotRegexp(t, `[IOQ]`, v)
}
