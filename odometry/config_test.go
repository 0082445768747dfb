package odometry

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultConfigValid(t *testing.T) {
	test.That(t, DefaultConfig().Validate(""), test.ShouldBeNil)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"img_point_cov", func(c *Config) { c.ImgPointCov = 0 }},
		{"patch_size odd", func(c *Config) { c.PatchSize = 7 }},
		{"patch_size zero", func(c *Config) { c.PatchSize = 0 }},
		{"grid_size", func(c *Config) { c.GridSize = 0 }},
		{"max_iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"voxel_size", func(c *Config) { c.VoxelSize = 0 }},
		{"leaf_size", func(c *Config) { c.LeafSize = -1 }},
		{"outlier_threshold", func(c *Config) { c.OutlierThreshold = 0 }},
		{"ncc_thre", func(c *Config) { c.NCCEnabled = true; c.NCCThreshold = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			test.That(t, cfg.Validate(""), test.ShouldNotBeNil)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.json")
	body := `{
		"img_point_cov": 100,
		"ncc_en": true,
		"ncc_thre": 0.85,
		"outlier_threshold": 78,
		"patch_size": 8,
		"grid_size": 40,
		"max_iterations": 5,
		"voxel_size": 0.5,
		"down_leaf_size": 0.2
	}`
	test.That(t, os.WriteFile(path, []byte(body), 0o600), test.ShouldBeNil)

	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.NCCEnabled, test.ShouldBeTrue)
	test.That(t, cfg.NCCThreshold, test.ShouldAlmostEqual, 0.85)
	test.That(t, cfg.OutlierThreshold, test.ShouldAlmostEqual, 78)
	test.That(t, cfg.MaxIterations, test.ShouldEqual, 5)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte(`{"patch_size": 7}`), 0o600), test.ShouldBeNil)
	_, err = LoadConfig(bad)
	test.That(t, err, test.ShouldNotBeNil)
}
