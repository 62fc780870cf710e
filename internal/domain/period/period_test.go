package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromParts(t *testing.T) {
	tests := []struct {
		name    string
		year    string
		month   string
		want    string
		wantErr bool
	}{
		{"padded month", "2022", "01", "202201", false},
		{"unpadded month", "2022", "3", "202203", false},
		{"december", "2021", "12", "202112", false},
		{"month out of range", "2022", "13", "", true},
		{"garbage", "20x2", "01", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromParts(tt.year, tt.month)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.year, got.YearString())
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New(2022, time.February)
	require.NoError(t, err)
	assert.Equal(t, "02", p.MonthString())

	_, err = New(2022, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestBefore(t *testing.T) {
	a := YearMonth{Year: 2021, Month: time.December}
	b := YearMonth{Year: 2022, Month: time.January}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestFromTime(t *testing.T) {
	p := FromTime(time.Date(2023, time.July, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "202307", p.String())
	assert.Equal(t, time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.False(t, p.IsZero())
	assert.True(t, YearMonth{}.IsZero())
}

func TestSort(t *testing.T) {
	ps := []YearMonth{
		{Year: 2022, Month: time.March},
		{Year: 2021, Month: time.December},
		{Year: 2022, Month: time.January},
	}
	Sort(ps)

	assert.Equal(t, "202112", ps[0].String())
	assert.Equal(t, "202201", ps[1].String())
	assert.Equal(t, "202203", ps[2].String())
}
