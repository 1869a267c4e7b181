package pymeta

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pyver"
)

func testTable() *pathintern.Table {
	return pathintern.NewTable()
}

func testPackage(tbl *pathintern.Table, name, version, site string) *Package {
	return &Package{
		Name:     name,
		Version:  pyver.Parse(version),
		Location: tbl.Intern(filepath.Join(site, name+"-"+version+".dist-info")),
		Site:     tbl.Intern(site),
		Format:   FormatDistInfo,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
}

func TestReadDir(t *testing.T) {
	site, err := ioutil.TempDir("", "pymeta")
	require.NoError(t, err)

	defer os.RemoveAll(site)

	r := NewReader(testTable())

	t.Run("dist-info with metadata headers", func(t *testing.T) {
		dir := filepath.Join(site, "flask-1.1.2.dist-info")
		writeFile(t, filepath.Join(dir, "METADATA"), "Metadata-Version: 2.1\nName: Flask\nVersion: 1.1.2\n\nweb framework\n")

		pkg, err := r.ReadDir(site, dir)
		require.NoError(t, err)

		assert.Equal(t, "Flask", pkg.Name)
		assert.Equal(t, "1.1.2", pkg.Version.String())
		assert.Equal(t, FormatDistInfo, pkg.Format)
		assert.Equal(t, site, pkg.Site.String())
		assert.Nil(t, pkg.DirectURL)
	})

	t.Run("dist-info without headers keeps dir casing", func(t *testing.T) {
		dir := filepath.Join(site, "Jinja2-2.11.3.dist-info")
		require.NoError(t, os.MkdirAll(dir, 0755))

		pkg, err := r.ReadDir(site, dir)
		require.NoError(t, err)

		assert.Equal(t, "Jinja2", pkg.Name)
		assert.Equal(t, "2.11.3", pkg.Version.String())
	})

	t.Run("direct url credentials are gone before storage", func(t *testing.T) {
		dir := filepath.Join(site, "dill-0.3.8.dist-info")
		writeFile(t, filepath.Join(dir, "METADATA"), "Name: dill\nVersion: 0.3.8\n")
		writeFile(t, filepath.Join(dir, "direct_url.json"),
			`{"url": "ssh://git@github.com/uqfoundation/dill.git", "vcs_info": {"commit_id": "a0a8e86976708d0436eec5c8f7d25329da727cb5", "requested_revision": "0.3.8", "vcs": "git"}}`)

		pkg, err := r.ReadDir(site, dir)
		require.NoError(t, err)

		require.NotNil(t, pkg.DirectURL)
		assert.Equal(t, "ssh://github.com/uqfoundation/dill.git", pkg.DirectURL.URL)
		assert.Equal(t, "git", pkg.DirectURL.VCS)
		assert.Equal(t, "a0a8e86976708d0436eec5c8f7d25329da727cb5", pkg.DirectURL.CommitID)
		assert.Equal(t, "0.3.8", pkg.DirectURL.RequestedRevision)
		assert.NotContains(t, pkg.DirectURL.URL, "git@")
	})

	t.Run("egg-info directory", func(t *testing.T) {
		dir := filepath.Join(site, "six-1.16.0.egg-info")
		writeFile(t, filepath.Join(dir, "PKG-INFO"), "Metadata-Version: 1.0\nName: six\nVersion: 1.16.0\n")

		pkg, err := r.ReadDir(site, dir)
		require.NoError(t, err)

		assert.Equal(t, "six", pkg.Name)
		assert.Equal(t, FormatEggInfo, pkg.Format)
	})

	t.Run("bare egg-info file", func(t *testing.T) {
		path := filepath.Join(site, "olddep.egg-info")
		writeFile(t, path, "Metadata-Version: 1.0\nName: olddep\nVersion: 0.9\n")

		pkg, err := r.ReadDir(site, path)
		require.NoError(t, err)

		assert.Equal(t, "olddep", pkg.Name)
		assert.Equal(t, "0.9", pkg.Version.String())
	})

	t.Run("version absent is not an error", func(t *testing.T) {
		dir := filepath.Join(site, "bare.dist-info")
		require.NoError(t, os.MkdirAll(dir, 0755))

		pkg, err := r.ReadDir(site, dir)
		require.NoError(t, err)

		assert.Equal(t, "bare", pkg.Name)
		assert.True(t, pkg.Version.Empty())
		assert.Equal(t, "bare", pkg.String())
	})

	t.Run("hyphenated name with no version segment", func(t *testing.T) {
		dir := filepath.Join(site, "foo-bar.egg-info")
		require.NoError(t, os.MkdirAll(dir, 0755))

		pkg, err := r.ReadDir(site, dir)
		require.NoError(t, err)

		assert.Equal(t, "foo-bar", pkg.Name)
		assert.True(t, pkg.Version.Empty())
	})

	t.Run("underivable name is malformed", func(t *testing.T) {
		dir := filepath.Join(site, ".dist-info")
		require.NoError(t, os.MkdirAll(dir, 0755))

		_, err := r.ReadDir(site, dir)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformed))
	})

	t.Run("non metadata path is malformed", func(t *testing.T) {
		dir := filepath.Join(site, "justadir")
		require.NoError(t, os.MkdirAll(dir, 0755))

		_, err := r.ReadDir(site, dir)
		assert.True(t, errors.Is(err, ErrMalformed))
	})
}

func TestArtifacts(t *testing.T) {
	top, err := ioutil.TempDir("", "pymeta-record")
	require.NoError(t, err)

	defer os.RemoveAll(top)

	site := filepath.Join(top, "venv", "lib", "site-packages")
	require.NoError(t, os.MkdirAll(site, 0755))

	r := NewReader(testTable())

	dir := filepath.Join(site, "flask-1.1.2.dist-info")
	writeFile(t, filepath.Join(dir, "METADATA"), "Name: flask\nVersion: 1.1.2\n")
	writeFile(t, filepath.Join(dir, "RECORD"),
		"flask/__init__.py,sha256=abcd,100\n"+
			"flask/app.py,sha256=ef01,200\n"+
			"../bin/flask,sha256=2345,50\n"+
			"flask/missing.py,sha256=6789,10\n")

	writeFile(t, filepath.Join(site, "flask/__init__.py"), "init")
	writeFile(t, filepath.Join(site, "flask/app.py"), "app code")
	writeFile(t, filepath.Join(top, "venv", "lib", "bin", "flask"), "#!stub")

	pkg, err := r.ReadDir(site, dir)
	require.NoError(t, err)

	set, err := pkg.Artifacts()
	require.NoError(t, err)

	require.Len(t, set.Files, 4)
	assert.Equal(t, 3, set.Present)
	assert.Equal(t, 1, set.Missing)

	byPath := map[string]Artifact{}
	for _, a := range set.Files {
		byPath[a.Path] = a
	}

	resolved := filepath.Join(top, "venv", "lib", "bin", "flask")
	require.Contains(t, byPath, resolved)
	assert.True(t, byPath[resolved].Exists)

	missing := filepath.Join(site, "flask/missing.py")
	require.Contains(t, byPath, missing)
	assert.False(t, byPath[missing].Exists)

	assert.True(t, sortedStrings(set.Dirs))
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}

	return true
}
