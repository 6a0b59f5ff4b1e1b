package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfractionType(t *testing.T) {
	cases := map[string]InfractionType{
		"notice": InfractionNotice, "note": InfractionNotice,
		"warning": InfractionWarning, "warn": InfractionWarning,
		"mute": InfractionMute,
		"ban":  InfractionBan,
		"kick": InfractionKick,
	}
	for in, want := range cases {
		got, ok := ParseInfractionType(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseInfractionType("timeout")
	assert.False(t, ok)
}

func TestInfractionTypeTraits(t *testing.T) {
	assert.True(t, InfractionMute.Exclusive())
	assert.True(t, InfractionBan.Exclusive())
	assert.False(t, InfractionKick.Exclusive())
	assert.False(t, InfractionWarning.Exclusive())

	assert.True(t, InfractionMute.HasPlatformEffect())
	assert.True(t, InfractionBan.HasPlatformEffect())
	assert.True(t, InfractionKick.HasPlatformEffect())
	assert.False(t, InfractionNotice.HasPlatformEffect())
	assert.False(t, InfractionWarning.HasPlatformEffect())
}

func TestInfractionActive(t *testing.T) {
	now := time.Now()
	hour := time.Hour

	t.Run("permanent stays active until rescinded", func(t *testing.T) {
		inf := Infraction{CreatedAt: now.Add(-1000 * time.Hour)}
		assert.True(t, inf.Active(now))

		inf.RescindedAt = &now
		assert.False(t, inf.Active(now))
	})

	t.Run("timed expires after duration", func(t *testing.T) {
		inf := Infraction{CreatedAt: now.Add(-30 * time.Minute), Duration: &hour}
		assert.True(t, inf.Active(now))
		assert.False(t, inf.Active(now.Add(45*time.Minute)))
	})

	t.Run("exactly at expiry is still active", func(t *testing.T) {
		inf := Infraction{CreatedAt: now, Duration: &hour}
		assert.True(t, inf.Active(now.Add(hour)))
		assert.False(t, inf.Active(now.Add(hour+time.Nanosecond)))
	})
}

func TestExpiresAt(t *testing.T) {
	now := time.Now()
	_, ok := Infraction{CreatedAt: now}.ExpiresAt()
	assert.False(t, ok)

	hour := time.Hour
	exp, ok := Infraction{CreatedAt: now, Duration: &hour}.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, now.Add(hour), exp)
}

func TestParseSortField(t *testing.T) {
	for _, in := range []string{"created_at", "created"} {
		f, ok := ParseSortField(in)
		require.True(t, ok)
		assert.Equal(t, SortByCreatedAt, f)
	}
	f, ok := ParseSortField("subject")
	require.True(t, ok)
	assert.Equal(t, SortBySubjectID, f)

	_, ok = ParseSortField("reason")
	assert.False(t, ok)
}

func TestNotFoundUnwrapsSentinel(t *testing.T) {
	err := error(&NotFoundError{InfractionID: 7})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConflictUnwrapsValidation(t *testing.T) {
	err := error(&ConflictingInfractionError{SubjectID: 42, Type: InfractionMute})

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "type", verr.Field)
	assert.Contains(t, verr.Msg, "active mute")
}
