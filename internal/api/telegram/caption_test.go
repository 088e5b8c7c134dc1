package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCaption(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    [][2]float64
		wantErr bool
	}{
		{name: "empty means whole frame", caption: "  ", want: nil},
		{name: "spaces", caption: "0.1,0.2 0.9,0.2 0.5,0.8", want: [][2]float64{{0.1, 0.2}, {0.9, 0.2}, {0.5, 0.8}}},
		{name: "semicolons and newlines", caption: "0,0;1,0\n1,1;0,1", want: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{name: "too few vertices", caption: "0,0 1,1", wantErr: true},
		{name: "missing comma", caption: "0 0 1,1 0,1", wantErr: true},
		{name: "not a number", caption: "a,0 1,0 1,1", wantErr: true},
		{name: "out of range", caption: "0,0 1.5,0 1,1", wantErr: true},
		{name: "nan", caption: "NaN,0 1,0 1,1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCaption(tt.caption)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
