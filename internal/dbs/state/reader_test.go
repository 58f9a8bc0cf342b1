package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenGG/asdbs/internal/dbs/dbconfig"
	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/paths"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
	"github.com/OpenGG/asdbs/internal/dbs/storage"
)

type fixture struct {
	root     string
	storage  *storage.Storage
	resolver *paths.Resolver
	reader   *Reader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	st := storage.New(afero.NewOsFs())
	resolver := paths.New(root, "POL", "pl-PL")
	return &fixture{
		root:     root,
		storage:  st,
		resolver: resolver,
		reader:   NewReader(st, resolver, nil),
	}
}

func (f *fixture) paths(t *testing.T, v domain.Version) paths.PathSet {
	t.Helper()
	p, err := f.resolver.Resolve(v)
	require.NoError(t, err)
	return p
}

func (f *fixture) writeConfig(t *testing.T, path string, sources ...snapshot.DataSource) {
	t.Helper()
	data, err := dbconfig.Marshal(sources)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func (f *fixture) linkSupport(t *testing.T, p paths.PathSet, target string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(p.SupportPath), 0o755))
	if err := os.Symlink(target, p.SupportPath); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

var sources = []snapshot.DataSource{
	{Name: "AstorBase", Value: "Data Source=srv;Initial Catalog=Base"},
	{Name: "AstorRules", Value: "Data Source=srv;Initial Catalog=Rules"},
}

func TestReadCurrentPlainSupportDir(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.AS2019)
	require.NoError(t, os.MkdirAll(p.SupportPath, 0o755))
	f.writeConfig(t, p.ConfigPath, sources...)

	got, err := f.reader.ReadCurrent(domain.AS2019)
	require.NoError(t, err)

	assert.Equal(t, "Current config for AS2019", got.Name)
	assert.Equal(t, domain.AS2019, got.Version)
	assert.Equal(t, sources, got.DataSources)
	steel, ok := got.Steel()
	require.True(t, ok)
	assert.False(t, steel.SupportDirIsLink)
	assert.Empty(t, steel.SupportDirLinkTarget)
}

func TestReadCurrentLinkedSupportDir(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.AS2019)
	target := filepath.Join(f.root, "server", "Support")
	f.linkSupport(t, p, target)
	f.writeConfig(t, p.ConfigPath, sources...)

	got, err := f.reader.ReadCurrent(domain.AS2019)
	require.NoError(t, err)

	steel, ok := got.Steel()
	require.True(t, ok)
	assert.True(t, steel.SupportDirIsLink)
	assert.Equal(t, snapshot.NormalizeLinkTarget(target), steel.SupportDirLinkTarget)
}

func TestReadCurrentMissingSupportDir(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.AS2019)
	f.writeConfig(t, p.ConfigPath, sources...)

	_, err := f.reader.ReadCurrent(domain.AS2019)
	assert.ErrorIs(t, err, domain.ErrSupportDirNotFound)
}

func TestReadCurrentDanglingLink(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.AS2019)
	target := filepath.Join(f.root, "gone")
	f.linkSupport(t, p, target)
	require.NoError(t, os.Remove(target))
	f.writeConfig(t, p.ConfigPath, sources...)

	_, err := f.reader.ReadCurrent(domain.AS2019)
	assert.ErrorIs(t, err, domain.ErrSupportDirNotFound)
}

func TestReadCurrentMissingConfig(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.AS2019)
	require.NoError(t, os.MkdirAll(p.SupportPath, 0o755))

	_, err := f.reader.ReadCurrent(domain.AS2019)
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestReadCurrentMalformedConfig(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.AS2019)
	require.NoError(t, os.MkdirAll(p.SupportPath, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(p.ConfigPath), 0o755))
	require.NoError(t, os.WriteFile(p.ConfigPath, []byte("<AdvanceSteel><DataSource"), 0o644))

	_, err := f.reader.ReadCurrent(domain.AS2019)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestReadCurrentUnsupportedVersion(t *testing.T) {
	f := newFixture(t)

	_, err := f.reader.ReadCurrent(domain.Version{Family: domain.FamilyAdvanceSteel, Year: 1999})
	assert.ErrorIs(t, err, domain.ErrUnsupportedVersion)
}

func TestReadCurrentRevit(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.RVT2020)
	f.writeConfig(t, p.ConfigPath, sources...)

	got, err := f.reader.ReadCurrent(domain.RVT2020)
	require.NoError(t, err)

	revit, ok := got.Revit()
	require.True(t, ok)
	assert.Equal(t, p.ConfigPath, revit.ConfigFileName)
	assert.Equal(t, sources, got.DataSources)
	assert.Equal(t, "Current config for RVT2020", got.Name)
}

func TestIsCurrent(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.AS2019)
	require.NoError(t, os.MkdirAll(p.SupportPath, 0o755))
	f.writeConfig(t, p.ConfigPath, sources...)

	same, err := snapshot.NewSteel("saved under another name", domain.AS2019, sources, false, "")
	require.NoError(t, err)
	assert.True(t, f.reader.IsCurrent(same))

	reordered, err := snapshot.NewSteel("reordered", domain.AS2019,
		[]snapshot.DataSource{sources[1], sources[0]}, false, "")
	require.NoError(t, err)
	assert.False(t, f.reader.IsCurrent(reordered))

	linked, err := snapshot.NewSteel("linked", domain.AS2019, sources, true, `\\srv\Support`)
	require.NoError(t, err)
	assert.False(t, f.reader.IsCurrent(linked))
}

func TestIsCurrentUnreadable(t *testing.T) {
	f := newFixture(t)

	s, err := snapshot.NewSteel("x", domain.AS2020, sources, false, "")
	require.NoError(t, err)
	assert.False(t, f.reader.IsCurrent(s))
	assert.False(t, f.reader.IsCurrent(nil))
}

func TestIsCurrentRevitCustomConfigFile(t *testing.T) {
	f := newFixture(t)
	p := f.paths(t, domain.RVT2023)
	custom := filepath.Join(f.root, "elsewhere", paths.ConfigFileName)
	f.writeConfig(t, custom, sources...)

	s, err := snapshot.NewRevit("revit", domain.RVT2023, sources, custom)
	require.NoError(t, err)
	assert.True(t, f.reader.IsCurrent(s))

	// The resolved path holds something else and does not matter here.
	f.writeConfig(t, p.ConfigPath, sources[0])
	assert.True(t, f.reader.IsCurrent(s))

	resolved, err := snapshot.NewRevit("resolved", domain.RVT2023, sources, "")
	require.NoError(t, err)
	assert.False(t, f.reader.IsCurrent(resolved))

	_, err = f.reader.ReadFor(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
}
