package depspec

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/sitevet/pkg/pyver"
)

func TestSatisfiedBy(t *testing.T) {
	t.Run("range", func(t *testing.T) {
		spec := parseOne(t, "pk1>=0.2,<0.3")

		ok, err := spec.SatisfiedBy(pyver.Parse("0.2.5"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = spec.SatisfiedBy(pyver.Parse("0.3"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unconstrained always satisfied", func(t *testing.T) {
		spec := parseOne(t, "anyver")

		ok, err := spec.SatisfiedBy(pyver.Parse("9.9"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wildcard equality", func(t *testing.T) {
		spec := parseOne(t, "pkg==2.*")

		ok, err := spec.SatisfiedBy(pyver.Parse("2.7"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = spec.SatisfiedBy(pyver.Parse("3.0"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wildcard with ordering operator is unevaluable", func(t *testing.T) {
		spec := parseOne(t, "pkg>=2.*")

		_, err := spec.SatisfiedBy(pyver.Parse("2.7"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnevaluable))
	})

	t.Run("compatible release", func(t *testing.T) {
		spec := parseOne(t, "pkg~=1.4.2")

		ok, err := spec.SatisfiedBy(pyver.Parse("1.4.9"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = spec.SatisfiedBy(pyver.Parse("1.5.0"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("arbitrary equality is literal", func(t *testing.T) {
		spec := parseOne(t, "pkg===1.0")

		ok, err := spec.SatisfiedBy(pyver.Parse("1.0"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = spec.SatisfiedBy(pyver.Parse("1.0.0"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("not equal", func(t *testing.T) {
		spec := parseOne(t, "pkg!=1.3")

		ok, err := spec.SatisfiedBy(pyver.Parse("1.3.0"))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = spec.SatisfiedBy(pyver.Parse("1.4"))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestSet(t *testing.T) {
	t.Run("last declaration wins", func(t *testing.T) {
		s := NewSet()

		s.Add(parseOne(t, "flask>=1.0"))
		s.Add(parseOne(t, "six==1.16.0"))
		s.Add(parseOne(t, "Flask==2.0"))

		require.Equal(t, 2, s.Len())

		got := s.Get("flask")
		require.NotNil(t, got)
		assert.Equal(t, "Flask==2.0", got.String())

		items := s.Items()
		assert.Equal(t, "six", items[0].Name)
		assert.Equal(t, "Flask", items[1].Name)
	})

	t.Run("sorted order is by key", func(t *testing.T) {
		s := NewSet()

		s.Add(parseOne(t, "zope.interface==5.0"))
		s.Add(parseOne(t, "Alpha==1.0"))

		sorted := s.Sorted()
		assert.Equal(t, "Alpha", sorted[0].Name)
		assert.Equal(t, "zope.interface", sorted[1].Name)

		assert.Equal(t, []string{"alpha", "zope.interface"}, s.Keys())
	})

	t.Run("hyphen underscore share a key", func(t *testing.T) {
		s := NewSet()

		s.Add(parseOne(t, "typing-extensions>=4.0"))
		s.Add(parseOne(t, "typing_extensions>=4.2"))

		require.Equal(t, 1, s.Len())
		assert.Equal(t, "typing_extensions>=4.2", s.Get("typing_extensions").String())
	})
}
