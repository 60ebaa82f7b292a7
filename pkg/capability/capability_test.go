package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

type french struct{}

func (french) Greet() string { return "bonjour" }

var greeterKey = NewKey[greeter]("test.greeter")

func TestResolveAbsentIsNotAnError(t *testing.T) {
	r := NewResolver(nil)
	got := Resolve(r, greeterKey)
	assert.False(t, got.Present())
	_, ok := got.Get()
	assert.False(t, ok)
	assert.False(t, Has(r, greeterKey))
}

func TestRegisterLastWins(t *testing.T) {
	r := NewResolver(nil)
	require.NoError(t, Register[greeter](r, greeterKey, english{}))
	require.NoError(t, Register[greeter](r, greeterKey, french{}))

	g, ok := Resolve(r, greeterKey).Get()
	require.True(t, ok)
	assert.Equal(t, "bonjour", g.Greet())
	assert.Equal(t, 1, r.Len())
}

func TestRegisterRejectsNil(t *testing.T) {
	r := NewResolver(nil)
	err := Register[greeter](r, greeterKey, nil)
	require.ErrorIs(t, err, ErrNilImplementation)
	assert.False(t, Has(r, greeterKey))
}

func TestUnregisterAndClear(t *testing.T) {
	r := NewResolver(nil)
	other := NewKey[greeter]("test.other")
	require.NoError(t, Register[greeter](r, greeterKey, english{}))
	require.NoError(t, Register[greeter](r, other, french{}))
	assert.Equal(t, []string{"test.greeter", "test.other"}, r.Names())

	assert.True(t, Unregister(r, greeterKey))
	assert.False(t, Unregister(r, greeterKey))
	assert.True(t, r.HasName("test.other"))

	r.Clear()
	assert.Zero(t, r.Len())
}

func TestResolveMismatchedTypeIsAbsent(t *testing.T) {
	r := NewResolver(nil)
	require.NoError(t, Register(r, NewKey[string]("test.greeter"), "not a greeter"))
	assert.False(t, Resolve(r, greeterKey).Present())
}

func TestOptionalOrElse(t *testing.T) {
	assert.Equal(t, 3, None[int]().OrElse(3))
	assert.Equal(t, 7, Some(7).OrElse(3))
}
