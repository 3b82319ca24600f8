package availability

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/domination/booking-service/internal/model"
)

func win(startHour, endHour int) Window {
    day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
    return Window{
        Start: day.Add(time.Duration(startHour) * time.Hour),
        End:   day.Add(time.Duration(endHour) * time.Hour),
    }
}

func TestWindowValid(t *testing.T) {
    require.True(t, win(10, 12).Valid())
    require.False(t, win(12, 12).Valid())
    require.False(t, win(12, 10).Valid())
    require.False(t, Window{}.Valid())
}

func TestWindowOverlaps(t *testing.T) {
    cases := []struct {
        name string
        a, b Window
        want bool
    }{
        {"identical", win(10, 12), win(10, 12), true},
        {"partial", win(10, 12), win(11, 13), true},
        {"contained", win(10, 14), win(11, 12), true},
        {"touching end to start", win(10, 12), win(12, 14), false},
        {"touching start to end", win(12, 14), win(10, 12), false},
        {"disjoint", win(8, 9), win(10, 11), false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            require.Equal(t, tc.want, tc.a.Overlaps(tc.b))
            require.Equal(t, tc.want, tc.b.Overlaps(tc.a))
        })
    }
}

func TestCheckExclusive(t *testing.T) {
    existing := []BookedLine{
        {Window: win(10, 12), Quantity: 1},
    }

    d := CheckExclusive(7, win(11, 13), existing)
    require.False(t, d.Admit)
    require.Equal(t, uint64(7), d.ItemID)

    d = CheckExclusive(7, win(12, 14), existing)
    require.True(t, d.Admit)

    // Back-to-back bookings share a boundary instant without conflict.
    d = CheckExclusive(7, win(8, 10), existing)
    require.True(t, d.Admit)

    d = CheckExclusive(7, win(9, 11), nil)
    require.True(t, d.Admit)
}

func TestCheckPooled(t *testing.T) {
    existing := []BookedLine{
        {Window: win(10, 14), Quantity: 6},
        {Window: win(12, 16), Quantity: 2},
        {Window: win(18, 20), Quantity: 10},
    }

    // 13:00-14:00 overlaps both of the first two lines: 8 reserved of 10.
    d := CheckPooled(3, win(13, 14), 2, 10, existing)
    require.True(t, d.Admit)
    require.Equal(t, int64(2), d.Available)

    d = CheckPooled(3, win(13, 14), 3, 10, existing)
    require.False(t, d.Admit)
    require.Equal(t, int64(3), d.Requested)
    require.Equal(t, int64(2), d.Available)

    // 15:00-16:00 only overlaps the second line.
    d = CheckPooled(3, win(15, 16), 8, 10, existing)
    require.True(t, d.Admit)

    // The fully booked evening slot admits nothing.
    d = CheckPooled(3, win(18, 19), 1, 10, existing)
    require.False(t, d.Admit)
    require.Equal(t, int64(0), d.Available)
}

func TestCheckDispatch(t *testing.T) {
    facts := &model.ResourceFacts{ItemID: 9, RentalMode: model.ModeExclusive, Capacity: 1}
    require.True(t, Check(facts, win(10, 12), 1, nil).Admit)

    facts.RentalMode = model.ModePooled
    facts.Capacity = 4
    require.True(t, Check(facts, win(10, 12), 4, nil).Admit)
    require.False(t, Check(facts, win(10, 12), 5, nil).Admit)

    // Unknown modes fail closed.
    facts.RentalMode = "HOURLY"
    require.False(t, Check(facts, win(10, 12), 1, nil).Admit)
}
