package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps_Basic(t *testing.T) {
	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{
			name:   "identical windows",
			aStart: date(2025, 6, 3), aEnd: date(2025, 6, 5),
			bStart: date(2025, 6, 3), bEnd: date(2025, 6, 5),
			want: true,
		},
		{
			name:   "partial overlap",
			aStart: date(2025, 6, 1), aEnd: date(2025, 6, 4),
			bStart: date(2025, 6, 3), bEnd: date(2025, 6, 6),
			want: true,
		},
		{
			name:   "contained window",
			aStart: date(2025, 6, 1), aEnd: date(2025, 6, 10),
			bStart: date(2025, 6, 4), bEnd: date(2025, 6, 5),
			want: true,
		},
		{
			name:   "checkout equals next check-in",
			aStart: date(2025, 6, 3), aEnd: date(2025, 6, 5),
			bStart: date(2025, 6, 5), bEnd: date(2025, 6, 7),
			want: false,
		},
		{
			name:   "check-in equals prior checkout",
			aStart: date(2025, 6, 5), aEnd: date(2025, 6, 7),
			bStart: date(2025, 6, 3), bEnd: date(2025, 6, 5),
			want: false,
		},
		{
			name:   "disjoint windows",
			aStart: date(2025, 6, 1), aEnd: date(2025, 6, 3),
			bStart: date(2025, 6, 10), bEnd: date(2025, 6, 12),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	base := date(2025, 1, 1)
	for aStart := 0; aStart < 8; aStart++ {
		for aLen := 1; aLen < 5; aLen++ {
			for bStart := 0; bStart < 8; bStart++ {
				for bLen := 1; bLen < 5; bLen++ {
					as := base.AddDate(0, 0, aStart)
					ae := base.AddDate(0, 0, aStart+aLen)
					bs := base.AddDate(0, 0, bStart)
					be := base.AddDate(0, 0, bStart+bLen)
					require.Equal(t, Overlaps(as, ae, bs, be), Overlaps(bs, be, as, ae),
						"overlap must be symmetric for [%d,%d) vs [%d,%d)", aStart, aStart+aLen, bStart, bStart+bLen)
				}
			}
		}
	}
}

// overlapsReference checks overlap by walking every night of both windows,
// the slow but obviously correct way.
func overlapsReference(aStart, aEnd, bStart, bEnd time.Time) bool {
	for day := aStart; day.Before(aEnd); day = day.AddDate(0, 0, 1) {
		if Contains(bStart, bEnd, day) {
			return true
		}
	}
	return false
}

func TestOverlaps_AgainstBruteForce(t *testing.T) {
	base := date(2025, 3, 1)
	for aStart := 0; aStart < 10; aStart++ {
		for aLen := 1; aLen < 6; aLen++ {
			for bStart := 0; bStart < 10; bStart++ {
				for bLen := 1; bLen < 6; bLen++ {
					as := base.AddDate(0, 0, aStart)
					ae := base.AddDate(0, 0, aStart+aLen)
					bs := base.AddDate(0, 0, bStart)
					be := base.AddDate(0, 0, bStart+bLen)
					require.Equal(t, overlapsReference(as, ae, bs, be), Overlaps(as, ae, bs, be),
						"mismatch for [%d,%d) vs [%d,%d)", aStart, aStart+aLen, bStart, bStart+bLen)
				}
			}
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	in := time.Date(2025, 6, 3, 23, 45, 12, 999, loc)
	got := NormalizeDate(in)

	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, in.UTC().Day(), got.Day())
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 2, DaysBetween(date(2025, 6, 3), date(2025, 6, 5)))
	assert.Equal(t, 0, DaysBetween(date(2025, 6, 5), date(2025, 6, 5)))
	assert.Equal(t, 0, DaysBetween(date(2025, 6, 7), date(2025, 6, 5)))
	assert.Equal(t, 30, DaysBetween(date(2025, 6, 1), date(2025, 7, 1)))
}
