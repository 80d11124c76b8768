// Package config loads the ivy module configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/bindless"
	"github.com/Carmen-Shannon/oxy-ivy/engine/records"
	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full module configuration.
type Config struct {
	Graph      GraphConfig     `toml:"graph"`
	Archetypes ArchetypeConfig `toml:"archetypes"`
	// Branches and Areas are the initial entry records. Omitting a list keeps its defaults.
	Branches []BranchConfig `toml:"branch"`
	Areas    []AreaConfig   `toml:"area"`
	Content  ContentConfig  `toml:"content"`
	EditFeed EditFeedConfig `toml:"edit_feed"`
	Log      LogConfig      `toml:"log"`
}

// GraphConfig configures the graph build.
type GraphConfig struct {
	ProgramName     string `toml:"program_name"`
	ShaderDir       string `toml:"shader_dir"`
	CompileWorkers  int    `toml:"compile_workers"`
	MaxInputRecords uint32 `toml:"max_input_records"`
}

// ArchetypeConfig names the meshes whose first surfaces become the stem and leaf archetypes.
type ArchetypeConfig struct {
	Stem string `toml:"stem"`
	Leaf string `toml:"leaf"`
}

// BranchConfig is one initial branch record.
type BranchConfig struct {
	Translation [3]float32  `toml:"translation"`
	Scale       *[3]float32 `toml:"scale"`
	Seed        uint32      `toml:"seed"`
}

// AreaConfig is one initial area record.
type AreaConfig struct {
	Translation [3]float32  `toml:"translation"`
	Scale       *[3]float32 `toml:"scale"`
	Seed        uint32      `toml:"seed"`
	Density     float32     `toml:"density"`
}

// ContentConfig lists the glTF scenes the host loads at startup.
type ContentConfig struct {
	// Root is the directory scene paths are relative to.
	Root   string   `toml:"root"`
	Scenes []string `toml:"scenes"`
	// FirstMeshIndex reserves the mesh indices below it for meshes the host builds itself.
	FirstMeshIndex uint32 `toml:"first_mesh_index"`
}

// EditFeedConfig configures the websocket edit feed.
type EditFeedConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// LogConfig configures the module logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration of the stock sample scene.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			ProgramName:     "WorkGraph",
			ShaderDir:       "shaders",
			CompileWorkers:  4,
			MaxInputRecords: 64,
		},
		Archetypes: ArchetypeConfig{
			Stem: bindless.DefaultStemMesh,
			Leaf: bindless.DefaultLeafMesh,
		},
		Branches: []BranchConfig{
			{Translation: [3]float32{-15.2, 4.5, 0}, Seed: 4750},
			{Translation: [3]float32{0, 0.1, 0}, Seed: 0},
		},
		Areas: []AreaConfig{
			{Translation: [3]float32{0, 17, 7}, Scale: &[3]float32{15, 1, 4}, Seed: 4050, Density: 0.14},
		},
		Content:  ContentConfig{Root: "."},
		EditFeed: EditFeedConfig{Addr: "127.0.0.1:8765"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads and validates a configuration file. A missing file yields the defaults.
//
// Parameters:
//   - path: the TOML file path
//
// Returns:
//   - *Config: the configuration
//   - error: a read, decode or validation error
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		common.ComponentLogger("config").Info("no config file, using defaults", slog.String("path", path))
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration over the defaults and validates it. Unknown keys are rejected.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - *Config: the configuration
//   - error: a decode or validation error
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	branches, areas := cfg.Branches, cfg.Areas
	cfg.Branches, cfg.Areas = nil, nil

	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("decoding at %d:%d: %w", row, col, err)
		}
		return nil, fmt.Errorf("decoding: %w", err)
	}
	if cfg.Branches == nil {
		cfg.Branches = branches
	}
	if cfg.Areas == nil {
		cfg.Areas = areas
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value is in range.
func (c *Config) Validate() error {
	var errs []error
	if c.Graph.CompileWorkers < 1 {
		errs = append(errs, fmt.Errorf("graph.compile_workers must be at least 1, got %d", c.Graph.CompileWorkers))
	}
	if c.Graph.ProgramName == "" {
		errs = append(errs, errors.New("graph.program_name is empty"))
	}
	if c.Archetypes.Stem == "" || c.Archetypes.Leaf == "" {
		errs = append(errs, errors.New("archetypes.stem and archetypes.leaf must both be set"))
	}
	for i, b := range c.Branches {
		if b.Seed > records.MaxSeed {
			errs = append(errs, fmt.Errorf("branch[%d].seed %d exceeds %d", i, b.Seed, records.MaxSeed))
		}
	}
	for i, a := range c.Areas {
		if a.Seed > records.MaxSeed {
			errs = append(errs, fmt.Errorf("area[%d].seed %d exceeds %d", i, a.Seed, records.MaxSeed))
		}
		if math32.IsNaN(a.Density) || a.Density < records.MinDensity || a.Density > records.MaxDensity {
			errs = append(errs, fmt.Errorf("area[%d].density %v outside [%v, %v]", i, a.Density, records.MinDensity, records.MaxDensity))
		}
	}
	for i, sc := range c.Content.Scenes {
		if ext := strings.ToLower(path.Ext(sc)); ext != ".gltf" && ext != ".glb" {
			errs = append(errs, fmt.Errorf("content.scenes[%d] %q is not a .gltf or .glb file", i, sc))
		}
	}
	if c.EditFeed.Enabled && c.EditFeed.Addr == "" {
		errs = append(errs, errors.New("edit_feed.addr is required when the feed is enabled"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured level name.
//
// Returns:
//   - slog.Level: the level
//   - error: if the name is not debug, info, warn or error
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(common.Coalesce(l.Level, "info")))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

func transform(t [3]float32, s *[3]float32) common.Mat4 {
	m := common.Translation(t[0], t[1], t[2])
	if s != nil {
		m = common.Mul4(m, common.Scale(s[0], s[1], s[2]))
	}
	return m
}

// BranchRecords converts the configured branches into entry records.
func (c *Config) BranchRecords() []records.BranchRecord {
	out := make([]records.BranchRecord, len(c.Branches))
	for i, b := range c.Branches {
		out[i] = records.BranchRecord{Transform: transform(b.Translation, b.Scale), Seed: b.Seed}
	}
	return out
}

// AreaRecords converts the configured areas into entry records.
func (c *Config) AreaRecords() []records.AreaRecord {
	out := make([]records.AreaRecord, len(c.Areas))
	for i, a := range c.Areas {
		out[i] = records.AreaRecord{Transform: transform(a.Translation, a.Scale), Seed: a.Seed, Density: a.Density}
	}
	return out
}

// StoreOptions returns the options that seed a records.Store with the configured records.
func (c *Config) StoreOptions() []records.StoreOption {
	return []records.StoreOption{
		records.WithBranches(c.BranchRecords()),
		records.WithAreas(c.AreaRecords()),
	}
}
