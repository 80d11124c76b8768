package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesStockRecords(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, records.DefaultBranches(), cfg.BranchRecords())
	assert.Equal(t, records.DefaultAreas(), cfg.AreaRecords())
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "ivy.toml"))
	require.NoError(t, err)

	assert.Equal(t, "assets/shaders", cfg.Graph.ShaderDir)
	assert.Equal(t, 2, cfg.Graph.CompileWorkers)
	assert.Equal(t, uint32(16), cfg.Graph.MaxInputRecords)
	assert.Equal(t, "WorkGraph", cfg.Graph.ProgramName)
	assert.Equal(t, "props/ivy/stem", cfg.Archetypes.Stem)

	branches := cfg.BranchRecords()
	require.Len(t, branches, 1)
	assert.Equal(t, common.Translation(1, 2, 3), branches[0].Transform)
	assert.Equal(t, uint32(12), branches[0].Seed)

	areas := cfg.AreaRecords()
	require.Len(t, areas, 2)
	assert.Equal(t, common.Mul4(common.Translation(0, 10, 0), common.Scale(4, 1, 2)), areas[0].Transform)
	assert.Equal(t, float32(1), areas[1].Density)

	assert.Equal(t, "assets", cfg.Content.Root)
	assert.Equal(t, []string{"media/Ivy.gltf", "media/Wall.glb"}, cfg.Content.Scenes)
	assert.Equal(t, uint32(8), cfg.Content.FirstMeshIndex)

	assert.True(t, cfg.EditFeed.Enabled)
	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	s := records.NewStore(cfg.StoreOptions()...)
	assert.Equal(t, 1, s.BranchCount())
	assert.Equal(t, 2, s.AreaCount())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestOmittedRecordsKeepDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("[graph]\ncompile_workers = 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Graph.CompileWorkers)
	assert.Len(t, cfg.Branches, 2)
	assert.Len(t, cfg.Areas, 1)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"unknown key", "[graph]\nworkers = 2\n", "decoding"},
		{"seed too large", "[[branch]]\nseed = 10001\n", "branch[0].seed"},
		{"density too large", "[[area]]\nseed = 1\ndensity = 1.5\n", "area[0].density"},
		{"no workers", "[graph]\ncompile_workers = 0\n", "compile_workers"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"feed without addr", "[edit_feed]\nenabled = true\naddr = \"\"\n", "edit_feed.addr"},
		{"scene not gltf", "[content]\nscenes = [\"ivy.obj\"]\n", "content.scenes[0]"},
		{"empty archetype", "[archetypes]\nstem = \"\"\n", "archetypes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
