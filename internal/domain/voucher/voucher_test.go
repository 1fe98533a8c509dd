package voucher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

func TestNewDefaults(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v := New("ABCDEFGHIJ", 150, issued, 0)

	assert.Equal(t, StatusActive, v.Status)
	require.NotNil(t, v.ExpiresAt)
	assert.Equal(t, issued.AddDate(0, 0, 180), *v.ExpiresAt)
	assert.Nil(t, v.UsedOn)
}

func TestCheckExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	expired := Voucher{Code: "old", Status: StatusActive, ExpiresAt: &past}
	err := expired.Check(now)
	require.Error(t, err)
	assert.Equal(t, internaltypes.KindVoucherInvalid, internaltypes.KindOf(err))

	valid := Voucher{Code: "fresh", Status: StatusActive, ExpiresAt: &future}
	assert.NoError(t, valid.Check(now))

	noExpiry := Voucher{Code: "forever", Status: StatusActive}
	assert.NoError(t, noExpiry.Check(now))
}

func TestRedeem(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	v := New("CODE123456", 100, now.Add(-time.Hour), 0)

	require.NoError(t, v.Redeem(now))
	assert.Equal(t, StatusUsed, v.Status)
	require.NotNil(t, v.UsedOn)
	assert.Equal(t, now, *v.UsedOn)

	err := v.Redeem(now.Add(time.Minute))
	e, ok := internaltypes.As(err)
	require.True(t, ok)
	assert.Equal(t, "voucher has already been used", e.Reason)
	assert.Equal(t, now, *v.UsedOn)
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		assert.Regexp(t, `^[a-zA-Z0-9]+$`, code)
		seen[code] = true
	}
	assert.Len(t, seen, 50)
}
