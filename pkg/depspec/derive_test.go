package depspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pymeta"
	"lab47.dev/sitevet/pkg/pyver"
)

func discovered(tbl *pathintern.Table, name, version, site string) *pymeta.Package {
	return &pymeta.Package{
		Name:     name,
		Version:  pyver.Parse(version),
		Location: tbl.Intern(site + "/" + name + "-" + version + ".dist-info"),
		Site:     tbl.Intern(site),
		Format:   pymeta.FormatDistInfo,
	}
}

func TestFromPackages(t *testing.T) {
	tbl := pathintern.NewTable()

	t.Run("lower anchors the minimum version", func(t *testing.T) {
		set, err := FromPackages([]*pymeta.Package{
			discovered(tbl, "pkg", "1.10", "/a"),
			discovered(tbl, "pkg", "1.2", "/b"),
		}, AnchorLower)
		require.NoError(t, err)

		spec := set.Get("pkg")
		require.NotNil(t, spec)
		assert.Equal(t, "pkg>=1.2", spec.String())
	})

	t.Run("upper anchors the maximum version", func(t *testing.T) {
		set, err := FromPackages([]*pymeta.Package{
			discovered(tbl, "pkg", "1.10", "/a"),
			discovered(tbl, "pkg", "1.2", "/b"),
		}, AnchorUpper)
		require.NoError(t, err)

		assert.Equal(t, "pkg<=1.10", set.Get("pkg").String())
	})

	t.Run("exact refuses diverging versions", func(t *testing.T) {
		_, err := FromPackages([]*pymeta.Package{
			discovered(tbl, "pkg", "1.2", "/a"),
			discovered(tbl, "pkg", "1.3", "/b"),
		}, AnchorExact)
		require.Error(t, err)
	})

	t.Run("exact pins a single version", func(t *testing.T) {
		set, err := FromPackages([]*pymeta.Package{
			discovered(tbl, "Flask", "2.0.1", "/a"),
		}, AnchorExact)
		require.NoError(t, err)

		assert.Equal(t, "Flask==2.0.1", set.Get("flask").String())
	})

	t.Run("direct installs derive their reference", func(t *testing.T) {
		p := discovered(tbl, "dill", "0.3.8", "/a")
		p.DirectURL = &pymeta.DirectURL{
			URL:               "ssh://github.com/uqfoundation/dill.git",
			VCS:               "git",
			CommitID:          "a0a8e86976708d0436eec5c8f7d25329da727cb5",
			RequestedRevision: "0.3.8",
		}

		set, err := FromPackages([]*pymeta.Package{p}, AnchorExact)
		require.NoError(t, err)

		assert.Equal(t, "dill @ git+ssh://github.com/uqfoundation/dill.git@0.3.8", set.Get("dill").String())
	})

	t.Run("output is key sorted", func(t *testing.T) {
		set, err := FromPackages([]*pymeta.Package{
			discovered(tbl, "zeta", "1.0", "/a"),
			discovered(tbl, "alpha", "1.0", "/a"),
		}, AnchorLower)
		require.NoError(t, err)

		items := set.Items()
		assert.Equal(t, "alpha", items[0].Name)
		assert.Equal(t, "zeta", items[1].Name)
	})
}

func TestParseAnchor(t *testing.T) {
	for s, want := range map[string]Anchor{
		"exact": AnchorExact, "lower": AnchorLower, "upper": AnchorUpper, "": AnchorExact,
	} {
		got, err := ParseAnchor(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseAnchor("sideways")
	require.Error(t, err)
}
