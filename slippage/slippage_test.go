package slippage

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBigIntFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid big.Int string: " + s)
	}
	return n
}

func TestAdjust(t *testing.T) {
	testCases := []struct {
		name     string
		amount   *big.Int
		slippage string
		minting  bool
		expected *big.Int
	}{
		{
			name:     "Mint widens 1 ETH by 0.5%",
			amount:   newBigIntFromString("1000000000000000000"),
			slippage: "0.5",
			minting:  true,
			// 1e18 * 100 / 99.5, rounded up
			expected: newBigIntFromString("1005025125628140704"),
		},
		{
			name:     "Redeem narrows 1 ETH by 0.5%",
			amount:   newBigIntFromString("1000000000000000000"),
			slippage: "0.5",
			minting:  false,
			// 1e18 * 100 / 100.5, rounded down
			expected: newBigIntFromString("995024875621890547"),
		},
		{
			name:     "Mint with 50% slippage doubles",
			amount:   big.NewInt(1_000_000),
			slippage: "50",
			minting:  true,
			expected: big.NewInt(2_000_000),
		},
		{
			name:     "Redeem with near 100% slippage roughly halves",
			amount:   big.NewInt(1_000_000),
			slippage: "99.9999",
			minting:  false,
			expected: big.NewInt(500_000),
		},
		{
			name:     "Zero slippage is identity when minting",
			amount:   big.NewInt(123456789),
			slippage: "0",
			minting:  true,
			expected: big.NewInt(123456789),
		},
		{
			name:     "Zero slippage is identity when redeeming",
			amount:   big.NewInt(123456789),
			slippage: "0",
			minting:  false,
			expected: big.NewInt(123456789),
		},
		{
			name:     "Six decimal token",
			amount:   big.NewInt(2_500_000),
			slippage: "1",
			minting:  true,
			// 2.5 USDC * 100 / 99 = 2.525252.. rounded up
			expected: big.NewInt(2_525_253),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Parse(tc.slippage)
			require.NoError(t, err)

			got, err := Adjust(tc.amount, s, tc.minting)
			require.NoError(t, err)
			assert.Equal(t, 0, tc.expected.Cmp(got), "expected %s, got %s", tc.expected, got)
		})
	}
}

func TestAdjustDirection(t *testing.T) {
	t.Run("Minting widens and redeeming narrows", func(t *testing.T) {
		amount := newBigIntFromString("987654321987654321")
		for _, s := range []string{"0.01", "0.3", "1", "5", "33.3"} {
			d := decimal.RequireFromString(s)

			up, err := Adjust(amount, d, true)
			require.NoError(t, err)
			down, err := Adjust(amount, d, false)
			require.NoError(t, err)

			assert.Equal(t, 1, up.Cmp(amount), "minting must widen for %s", s)
			assert.Equal(t, -1, down.Cmp(amount), "redeeming must narrow for %s", s)
		}
	})

	t.Run("More slippage moves further in the same direction", func(t *testing.T) {
		amount := newBigIntFromString("1000000000000000000000000")
		rising := []string{"0", "0.001", "0.01", "0.3", "1", "5", "33.3", "99.9"}

		var prevUp, prevDown *big.Int
		for _, s := range rising {
			d := decimal.RequireFromString(s)

			up, err := Adjust(amount, d, true)
			require.NoError(t, err)
			down, err := Adjust(amount, d, false)
			require.NoError(t, err)

			if prevUp != nil {
				assert.Equal(t, 1, up.Cmp(prevUp), "mint maximum must grow at %s%%", s)
				assert.Equal(t, -1, down.Cmp(prevDown), "redeem minimum must shrink at %s%%", s)
			}
			prevUp, prevDown = up, down
		}
	})
}

func TestAdjustErrors(t *testing.T) {
	t.Run("Slippage out of range", func(t *testing.T) {
		for _, s := range []string{"-0.1", "100", "250"} {
			_, err := Adjust(big.NewInt(1), decimal.RequireFromString(s), true)
			assert.ErrorIs(t, err, ErrInvalidSlippage, s)
		}
		_, err := Parse("abc")
		assert.ErrorIs(t, err, ErrInvalidSlippage)
	})

	t.Run("Invalid amounts", func(t *testing.T) {
		_, err := Adjust(nil, decimal.NewFromInt(1), true)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = Adjust(big.NewInt(-1), decimal.NewFromInt(1), true)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		tooLarge := new(big.Int).Lsh(big.NewInt(1), 256)
		_, err = Adjust(tooLarge, decimal.NewFromInt(1), true)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Result overflow", func(t *testing.T) {
		maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
		_, err := Adjust(maxUint, decimal.NewFromInt(50), true)
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("Input is not mutated", func(t *testing.T) {
		amount := big.NewInt(1000)
		got, err := Adjust(amount, decimal.Zero, true)
		require.NoError(t, err)
		got.SetInt64(1)
		assert.Equal(t, int64(1000), amount.Int64())
	})
}
