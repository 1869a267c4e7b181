package pyver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		assert.True(t, Parse("2.2").Equal(Parse("2.2")))
		assert.False(t, Parse("2.2").Equal(Parse("2.3")))
	})

	t.Run("wildcards", func(t *testing.T) {
		assert.True(t, Parse("2.*").Equal(Parse("2.2")))
		assert.True(t, Parse("2.2").Equal(Parse("2.*")))
		assert.True(t, Parse("2.*.1").Equal(Parse("2.2.1")))
		assert.False(t, Parse("2.*.1").Equal(Parse("2.2.2")))
	})

	t.Run("zero pads the shorter side", func(t *testing.T) {
		assert.True(t, Parse("2.2").Equal(Parse("2.2.0")))
		assert.True(t, Parse("1").Equal(Parse("1.0")))
		assert.False(t, Parse("2.2").Equal(Parse("2.2.1")))
	})

	t.Run("mixed kinds are unequal", func(t *testing.T) {
		assert.False(t, Parse("1.a").Equal(Parse("1.0")))
	})
}

func TestCompare(t *testing.T) {
	t.Run("numeric aware", func(t *testing.T) {
		assert.Equal(t, -1, Parse("1.2").Compare(Parse("1.10")))
		assert.Equal(t, 1, Parse("1.10").Compare(Parse("1.2")))
		assert.Equal(t, 0, Parse("1.2").Compare(Parse("1.2")))
	})

	t.Run("numbers order above text", func(t *testing.T) {
		assert.Equal(t, 1, Parse("1.0.0").Compare(Parse("1.0.a")))
		assert.Equal(t, -1, Parse("1.0rc1").Compare(Parse("1.1")))
	})

	t.Run("wildcard neutral", func(t *testing.T) {
		assert.True(t, Parse("2.*").Compare(Parse("2.2.1")) <= 0)
		assert.True(t, Parse("2.2").Compare(Parse("2.*")) <= 0)
	})

	t.Run("length breaks ties", func(t *testing.T) {
		assert.Equal(t, -1, Parse("1.0").Compare(Parse("1.0.0")))
		assert.Equal(t, 1, Parse("1.0.0").Compare(Parse("1.0")))
	})
}

func TestCompatibleRelease(t *testing.T) {
	t.Run("holds within the truncated prefix", func(t *testing.T) {
		assert.True(t, CompatibleRelease(Parse("2.2.5"), Parse("2.2.1")))
		assert.True(t, CompatibleRelease(Parse("2.3"), Parse("2.2")))
		assert.False(t, CompatibleRelease(Parse("3.0"), Parse("2.2")))
		assert.False(t, CompatibleRelease(Parse("2.2.0"), Parse("2.2.1")))
	})

	t.Run("patch pin keeps the minor series", func(t *testing.T) {
		assert.True(t, CompatibleRelease(Parse("1.4.9"), Parse("1.4.2")))
		assert.False(t, CompatibleRelease(Parse("1.5.0"), Parse("1.4.2")))
	})

	t.Run("single segment falls back to major", func(t *testing.T) {
		assert.True(t, CompatibleRelease(Parse("2.9"), Parse("2")))
		assert.False(t, CompatibleRelease(Parse("3.0"), Parse("2")))
	})
}

func TestParse(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.True(t, Parse("").Empty())
		assert.False(t, Parse("1.0").Empty())
	})

	t.Run("raw retained for display", func(t *testing.T) {
		assert.Equal(t, "1.26.0b1", Parse(" 1.26.0b1 ").String())
	})
}
