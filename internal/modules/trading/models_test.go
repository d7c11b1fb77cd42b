package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    Signal
		wantErr bool
	}{
		{input: "hold", want: SignalHold},
		{input: "BUY_TO_ENTER", want: SignalBuyToEnter},
		{input: " sell_to_enter ", want: SignalSellToEnter},
		{input: "close_position", want: SignalClosePosition},
		{input: "buy", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SignalFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignalPositionSide(t *testing.T) {
	assert.Equal(t, SideLong, SignalBuyToEnter.PositionSide())
	assert.Equal(t, SideShort, SignalSellToEnter.PositionSide())
}

func TestDecisionValidate(t *testing.T) {
	d := Decision{Signal: SignalBuyToEnter, Quantity: 0.5}
	assert.NoError(t, d.Validate())
	// Leverage defaults to 1 when unset.
	assert.Equal(t, 1, d.Leverage)

	bad := Decision{Signal: SignalBuyToEnter, Quantity: 0}
	assert.Error(t, bad.Validate())

	hold := Decision{Signal: SignalHold}
	assert.NoError(t, hold.Validate())
}
