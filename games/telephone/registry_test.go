package telephone

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestRegistryRetriesOnCollision(t *testing.T) {
	codes := []string{"abcd", "ABCD", "abcd", "WXYZ"}
	reg, err := NewRegistry(func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	})
	require.NoError(t, err)

	first := reg.Create(&Player{Session: "a"}, fixedTime)
	second := reg.Create(&Player{Session: "b"}, fixedTime)

	assert.Equal(t, "ABCD", first.Code)
	assert.Equal(t, "WXYZ", second.Code)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryDefaultCodes(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		code := reg.uniqueCode()
		require.Len(t, code, CodeLength)
		assert.Empty(t, strings.Trim(code, CodeAlphabet), "code %q uses characters outside the alphabet", code)
	}
	assert.Len(t, CodeAlphabet, 32)
	assert.False(t, strings.ContainsAny(CodeAlphabet, "IO01"))
}

func TestRegistryLookups(t *testing.T) {
	reg, err := NewRegistry(func() string { return "QRST" })
	require.NoError(t, err)

	room := reg.Create(&Player{Session: "a", Conn: "c1", Online: true}, fixedTime)
	room.Players = append(room.Players, &Player{Session: "b", Kicked: true})

	got, ok := reg.Get(" qrst ")
	require.True(t, ok)
	assert.Same(t, room, got)

	found, idx := reg.FindByConn("c1")
	assert.Same(t, room, found)
	assert.Equal(t, 0, idx)

	found, _ = reg.FindByConn("")
	assert.Nil(t, found)

	found, idx = reg.FindBySession("a")
	assert.Same(t, room, found)
	assert.Equal(t, 0, idx)

	found, _ = reg.FindBySession("b")
	assert.Nil(t, found, "kicked slots do not hold a seat")

	reg.Delete("qrst")
	_, ok = reg.Get("QRST")
	assert.False(t, ok)
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore()
	s.Put("a", "ABCD", "Ann")
	s.Put("b", "ABCD", "Bob")
	s.Put("c", "WXYZ", "Cat")

	sess, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, Session{Token: "a", RoomCode: "ABCD", Name: "Ann"}, sess)

	s.Delete("a")
	_, ok = s.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 1, s.DeleteRoom("ABCD"))
	assert.Equal(t, 1, s.Len())
}
