package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func coord(v float64) *float64 { return &v }

func TestHasCoordinates(t *testing.T) {
	tests := []struct {
		name string
		lat  *float64
		lng  *float64
		want bool
	}{
		{"both present", coord(32.78), coord(-96.80), true},
		{"missing latitude", nil, coord(-96.80), false},
		{"missing longitude", coord(32.78), nil, false},
		{"null island", coord(0), coord(0), false},
		{"nan latitude", coord(math.NaN()), coord(-96.80), false},
		{"infinite longitude", coord(32.78), coord(math.Inf(1)), false},
		{"latitude out of range", coord(95), coord(-96.80), false},
		{"longitude out of range", coord(32.78), coord(-200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := LeadRecord{Latitude: tt.lat, Longitude: tt.lng}
			assert.Equal(t, tt.want, rec.HasCoordinates())
		})
	}
}
