package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsToPath_RoundTrip(t *testing.T) {
	cases := map[string][]Point{
		"square":    {{0, 0}, {100, 0}, {100, 100}, {0, 100}},
		"fractions": {{0.1, 0.2}, {1.0 / 3, 2.0 / 3}, {-12.5, 7e-9}, {1e21, -3}},
		"negative":  {{-1, -1}, {-2, 5}, {3, -4}},
	}

	for name, pts := range cases {
		t.Run(name, func(t *testing.T) {
			path := PointsToPath(pts)
			got, err := PathToPoints(path)
			require.NoError(t, err)
			assert.Equal(t, pts, got)
		})
	}
}

func TestPointsToPath_Format(t *testing.T) {
	assert.Equal(t, "", PointsToPath(nil))
	assert.Equal(t, "M 1 2", PointsToPath([]Point{{1, 2}}))
	assert.Equal(t, "M 1 2 L 3 4", PointsToPath([]Point{{1, 2}, {3, 4}}))
	assert.Equal(t, "M 0 0 L 10 0 L 10 10 Z", PointsToPath([]Point{{0, 0}, {10, 0}, {10, 10}}))
}

func TestPathToPoints_Commands(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []Point
	}{
		{"empty", "   ", []Point{}},
		{"commas", "M0,0 L10,0 L10,10z", []Point{{0, 0}, {10, 0}, {10, 10}}},
		{"implicit lineto", "M 0 0 10 0 10 10", []Point{{0, 0}, {10, 0}, {10, 10}}},
		{"relative", "m 5 5 l 10 0 l 0 10", []Point{{5, 5}, {15, 5}, {15, 15}}},
		{"relative implicit", "m 1 1 2 2", []Point{{1, 1}, {3, 3}}},
		{"horizontal vertical", "M 1 1 H 5 V 7 h -2 v -3", []Point{{1, 1}, {5, 1}, {5, 7}, {3, 7}, {3, 4}}},
		{"cubic keeps endpoint", "M 0 0 C 10 10 20 10 30 0", []Point{{0, 0}, {30, 0}}},
		{"quadratic and smooth", "M 0 0 Q 5 5 10 0 S 15 5 20 0 T 30 0", []Point{{0, 0}, {10, 0}, {20, 0}, {30, 0}}},
		{"arc", "M 0 0 A 5 5 0 0 1 10 0", []Point{{0, 0}, {10, 0}}},
		{"packed numbers", "M10-5L.5.5", []Point{{10, -5}, {0.5, 0.5}}},
		{"exponent", "M 1e2 -2.5E-1", []Point{{100, -0.25}}},
		{"close resets to start", "M 10 10 L 20 10 L 20 20 Z l 5 0", []Point{{10, 10}, {20, 10}, {20, 20}, {15, 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PathToPoints(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathToPoints_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		offset int
	}{
		{"unknown command", "M 0 0 X 1 1", 6},
		{"numbers first", "10 10 L 5 5", 0},
		{"missing argument", "M 0 0 L 5", 9},
		{"garbage character", "M 0 0 L # 5", 8},
		{"bare sign", "M - 1", 2},
		{"numbers after close", "M 0 0 L 1 1 L 2 0 Z 4 4", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PathToPoints(tt.path)
			require.Error(t, err)

			var perr *MalformedPathError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.path, perr.Path)
			assert.Equal(t, tt.offset, perr.Offset)
		})
	}
}
