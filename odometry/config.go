package odometry

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config holds the tunables of the visual engine.
type Config struct {
	// ImgPointCov is the photometric measurement noise variance.
	ImgPointCov float64 `json:"img_point_cov"`
	// NCCEnabled turns on the normalized cross correlation pre-filter.
	NCCEnabled bool `json:"ncc_en"`
	// NCCThreshold rejects candidates whose patch NCC falls below it.
	NCCThreshold float64 `json:"ncc_thre"`
	// OutlierThreshold rejects candidates whose per-pixel squared error
	// exceeds it.
	OutlierThreshold float64 `json:"outlier_threshold"`
	// PatchSize is the side length of the alignment patches, in pixels.
	PatchSize int `json:"patch_size"`
	// GridSize is the side length of the selection grid cells, in pixels.
	GridSize int `json:"grid_size"`
	// MaxIterations bounds the Kalman iterations per pyramid level.
	MaxIterations int `json:"max_iterations"`
	// VoxelSize is the visual map bucket granularity, in meters.
	VoxelSize float64 `json:"voxel_size"`
	// LeafSize is the cloud downsample leaf, in meters.
	LeafSize float64 `json:"down_leaf_size"`
}

// DefaultConfig returns the configuration the engine ships with.
func DefaultConfig() *Config {
	return &Config{
		ImgPointCov:      100,
		NCCEnabled:       false,
		NCCThreshold:     0.8,
		OutlierThreshold: 300,
		PatchSize:        8,
		GridSize:         40,
		MaxIterations:    4,
		VoxelSize:        0.5,
		LeafSize:         0.2,
	}
}

// LoadConfig loads an engine configuration from a json file.
func LoadConfig(path string) (*Config, error) {
	var config Config
	configFile, err := os.Open(path) //nolint:gosec
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err != nil {
		return nil, err
	}
	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(&config)
	if err != nil {
		return nil, err
	}
	err = config.Validate(path)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	if config.ImgPointCov <= 0 {
		return utils.NewConfigValidationError(path, errors.New("img_point_cov should be positive"))
	}
	if config.PatchSize < 2 || config.PatchSize%2 != 0 {
		return utils.NewConfigValidationError(path, errors.New("patch_size should be a positive even number"))
	}
	if config.GridSize < 1 {
		return utils.NewConfigValidationError(path, errors.New("grid_size should be >= 1"))
	}
	if config.MaxIterations < 1 {
		return utils.NewConfigValidationError(path, errors.New("max_iterations should be >= 1"))
	}
	if config.VoxelSize <= 0 {
		return utils.NewConfigValidationError(path, errors.New("voxel_size should be positive"))
	}
	if config.LeafSize <= 0 {
		return utils.NewConfigValidationError(path, errors.New("down_leaf_size should be positive"))
	}
	if config.NCCEnabled && (config.NCCThreshold <= 0 || config.NCCThreshold > 1) {
		return utils.NewConfigValidationError(path, errors.New("ncc_thre should be in (0, 1]"))
	}
	if config.OutlierThreshold <= 0 {
		return utils.NewConfigValidationError(path, errors.New("outlier_threshold should be positive"))
	}
	return nil
}
