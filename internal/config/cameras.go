package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/pkg/capture"
	"github.com/pelletier/go-toml/v2"
)

// knownSources are the backend names a camera may bind to.
var knownSources = []string{"synthetic", "v4l2", "gst"}

// CameraSpec describes one camera in cameras.toml. The map key in
// CamerasConfig is the camera ID.
type CameraSpec struct {
	Source string `toml:"source" json:"source"` // synthetic, v4l2, gst
	Device string `toml:"device,omitempty" json:"device,omitempty"` // Stable device identifier (USB bus/port)

	// Capture settings
	Format       string  `toml:"format,omitempty" json:"format,omitempty"`               // Delivery pixel format
	SourceFormat string  `toml:"source_format,omitempty" json:"source_format,omitempty"` // Sensor-side format preference
	Width        uint32  `toml:"width,omitempty" json:"width,omitempty"`
	Height       uint32  `toml:"height,omitempty" json:"height,omitempty"`
	Framerate    float64 `toml:"framerate,omitempty" json:"framerate,omitempty"`
	Mode         string  `toml:"mode,omitempty" json:"mode,omitempty"` // single, single_low_latency, continuous
	AutoStart    bool    `toml:"auto_start,omitempty" json:"auto_start,omitempty"`

	// Disabled cameras stay in the file but are not built by the manager.
	Disabled bool `toml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Validate checks that the spec can actually be turned into a camera.
func (s CameraSpec) Validate() error {
	if s.Source == "" {
		return fmt.Errorf("source is required")
	}
	if !slices.Contains(knownSources, s.Source) {
		return fmt.Errorf("unknown source %q (known: %v)", s.Source, knownSources)
	}
	if s.Format != "" {
		if _, err := capture.ParsePixelFormat(s.Format); err != nil {
			return fmt.Errorf("format: %w", err)
		}
	}
	if s.Mode != "" {
		if _, ok := capture.ParseCaptureMode(s.Mode); !ok {
			return fmt.Errorf("unknown mode %q", s.Mode)
		}
	}
	if s.SourceFormat != "" && !models.SourceFormat(s.SourceFormat).IsValid() {
		return fmt.Errorf("unknown source_format %q", s.SourceFormat)
	}
	if s.AutoStart && (s.Width == 0 || s.Height == 0) {
		return fmt.Errorf("auto_start requires width and height")
	}
	return nil
}

// CamerasConfig represents the complete cameras configuration file
type CamerasConfig struct {
	Version int                   `toml:"version" json:"version"`
	Cameras map[string]CameraSpec `toml:"cameras" json:"cameras"`
}

// CamerasStore reads camera definitions from a TOML file
type CamerasStore struct {
	configPath string
	config     *CamerasConfig
}

// NewCamerasStore creates a store for the given path
func NewCamerasStore(configPath string) *CamerasStore {
	if configPath == "" {
		configPath = "cameras.toml"
	}

	return &CamerasStore{
		configPath: configPath,
		config: &CamerasConfig{
			Version: 1,
			Cameras: make(map[string]CameraSpec),
		},
	}
}

// Load loads the cameras configuration from file. A missing file is not an
// error and leaves the store empty.
func (cs *CamerasStore) Load() error {
	if _, err := os.Stat(cs.configPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(cs.configPath)
	if err != nil {
		return fmt.Errorf("failed to read cameras config: %w", err)
	}

	config := &CamerasConfig{}
	if err := toml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse cameras config: %w", err)
	}

	if config.Cameras == nil {
		config.Cameras = make(map[string]CameraSpec)
	}
	if config.Version == 0 {
		config.Version = 1
	}

	for id, spec := range config.Cameras {
		// IDs end up in NATS subjects, where a dot is a separator.
		if strings.Contains(id, ".") {
			return fmt.Errorf("camera %s: id must not contain dots", id)
		}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("camera %s: %w", id, err)
		}
	}

	cs.config = config
	return nil
}

// Get retrieves a camera spec by ID
func (cs *CamerasStore) Get(id string) (CameraSpec, bool) {
	spec, exists := cs.config.Cameras[id]
	return spec, exists
}

// GetAll returns all camera specs
func (cs *CamerasStore) GetAll() map[string]CameraSpec {
	return cs.config.Cameras
}

// Enabled returns the specs the manager should build
func (cs *CamerasStore) Enabled() map[string]CameraSpec {
	enabled := make(map[string]CameraSpec)
	for id, spec := range cs.config.Cameras {
		if !spec.Disabled {
			enabled[id] = spec
		}
	}
	return enabled
}

// LoadCameraSpecs loads and validates a cameras file, returning the enabled
// specs. Shaped for use as a Watcher loader so reloads hand the manager the
// same view the boot path uses.
func LoadCameraSpecs(path string) (map[string]CameraSpec, error) {
	store := NewCamerasStore(path)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store.Enabled(), nil
}
