// Package config loads the mudra configuration.
//
// Resolution order is defaults, then the YAML file, then MUDRA_* environment
// variables, then command-line flag overrides. Validate is called last so
// the rest of the code can assume a well-formed config.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/status"
)

// EnvPrefix prefixes every environment override, e.g. MUDRA_SERVER_ADDR.
const EnvPrefix = "MUDRA"

// Config is the top-level YAML configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Camera   CameraConfig   `yaml:"camera"`
	Face     FaceConfig     `yaml:"face"`
	Hand     HandConfig     `yaml:"hand"`
	Voice    VoiceConfig    `yaml:"voice"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tray     TrayConfig     `yaml:"tray"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type PluginsConfig struct {
	Dir       string `yaml:"dir"`
	Injector  string `yaml:"injector"`
	TimeoutMS int    `yaml:"timeout_ms"`
	// Config is passed to the injector plugin with every request, e.g.
	// {serial: emulator-5554} for adb-input.
	Config map[string]interface{} `yaml:"config"`
}

type CameraConfig struct {
	Enabled         bool    `yaml:"enabled"`
	DeviceID        int     `yaml:"device_id"`
	MotionThreshold float64 `yaml:"motion_threshold"`
	IdleFPS         int     `yaml:"idle_fps"`
	ActiveFPS       int     `yaml:"active_fps"`
	IdleTimeoutMS   int     `yaml:"idle_timeout_ms"`
	LandmarkerPath  string  `yaml:"landmarker_path,omitempty"`
}

type FaceConfig struct {
	Enabled             bool    `yaml:"enabled"`
	CooldownMS          int64   `yaml:"cooldown_ms"`
	MouthOpenThreshold  float64 `yaml:"mouth_open_threshold"`
	EyeClosedThreshold  float64 `yaml:"eye_closed_threshold"`
	DoubleBlinkWindowMS int64   `yaml:"double_blink_window_ms"`
}

type HandConfig struct {
	Enabled          bool    `yaml:"enabled"`
	CooldownMS       int64   `yaml:"cooldown_ms"`
	PinchThreshold   float64 `yaml:"pinch_threshold"`
	ReleaseThreshold float64 `yaml:"release_threshold"`
}

type VoiceConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Command        []string `yaml:"command"`
	RestartDelayMS int      `yaml:"restart_delay_ms"`
}

type DispatchConfig struct {
	CooldownMS      int64 `yaml:"cooldown_ms"`
	DoubleTapGapMS  int   `yaml:"double_tap_gap_ms"`
	TapDurationMS   int   `yaml:"tap_duration_ms"`
	LongPressMS     int   `yaml:"long_press_ms"`
	SwipeDurationMS int   `yaml:"swipe_duration_ms"`
	StatusResetMS   int   `yaml:"status_reset_ms"`
	QueueSize       int   `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".mudra")

	face := gesture.DefaultFaceConfig()
	hand := gesture.DefaultHandConfig()
	disp := dispatch.DefaultConfig()

	return Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Store: StoreConfig{
			Path: filepath.Join(base, "mudra.db"),
		},
		Plugins: PluginsConfig{
			Dir:       filepath.Join(base, "plugins"),
			Injector:  "adb-input",
			TimeoutMS: 5000,
		},
		Camera: CameraConfig{
			Enabled:         true,
			DeviceID:        0,
			MotionThreshold: 1.0,
			IdleFPS:         5,
			ActiveFPS:       15,
			IdleTimeoutMS:   2000,
		},
		Face: FaceConfig{
			Enabled:             true,
			CooldownMS:          face.CooldownMs,
			MouthOpenThreshold:  face.MouthOpenThreshold,
			EyeClosedThreshold:  face.EyeClosedThreshold,
			DoubleBlinkWindowMS: face.DoubleBlinkWindowMs,
		},
		Hand: HandConfig{
			Enabled:          true,
			CooldownMS:       hand.CooldownMs,
			PinchThreshold:   hand.PinchThreshold,
			ReleaseThreshold: hand.ReleaseThreshold,
		},
		Voice: VoiceConfig{
			Enabled:        true,
			RestartDelayMS: 500,
		},
		Dispatch: DispatchConfig{
			CooldownMS:      disp.CooldownMs,
			DoubleTapGapMS:  int(disp.DoubleTapGap / time.Millisecond),
			TapDurationMS:   int(disp.TapDuration / time.Millisecond),
			LongPressMS:     int(disp.LongPressDuration / time.Millisecond),
			SwipeDurationMS: 300,
			StatusResetMS:   1200,
			QueueSize:       disp.QueueSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tray: TrayConfig{
			Enabled: true,
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
// Unknown fields are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Load resolves defaults, the optional file at path and environment
// overrides. Flag overrides and validation are left to the caller.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, err = LoadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides cfg with MUDRA_<SECTION>_<KEY> environment variables,
// e.g. MUDRA_DISPATCH_COOLDOWN_MS=1000.
func ApplyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	integer := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	int64v := func(key string, dst *int64) {
		if v.IsSet(key) {
			*dst = v.GetInt64(key)
		}
	}
	float := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	str("server.addr", &cfg.Server.Addr)
	str("server.static_dir", &cfg.Server.StaticDir)
	str("store.path", &cfg.Store.Path)

	str("plugins.dir", &cfg.Plugins.Dir)
	str("plugins.injector", &cfg.Plugins.Injector)
	integer("plugins.timeout_ms", &cfg.Plugins.TimeoutMS)

	boolean("camera.enabled", &cfg.Camera.Enabled)
	integer("camera.device_id", &cfg.Camera.DeviceID)
	float("camera.motion_threshold", &cfg.Camera.MotionThreshold)
	integer("camera.idle_fps", &cfg.Camera.IdleFPS)
	integer("camera.active_fps", &cfg.Camera.ActiveFPS)
	integer("camera.idle_timeout_ms", &cfg.Camera.IdleTimeoutMS)
	str("camera.landmarker_path", &cfg.Camera.LandmarkerPath)

	boolean("face.enabled", &cfg.Face.Enabled)
	int64v("face.cooldown_ms", &cfg.Face.CooldownMS)
	float("face.mouth_open_threshold", &cfg.Face.MouthOpenThreshold)
	float("face.eye_closed_threshold", &cfg.Face.EyeClosedThreshold)
	int64v("face.double_blink_window_ms", &cfg.Face.DoubleBlinkWindowMS)

	boolean("hand.enabled", &cfg.Hand.Enabled)
	int64v("hand.cooldown_ms", &cfg.Hand.CooldownMS)
	float("hand.pinch_threshold", &cfg.Hand.PinchThreshold)
	float("hand.release_threshold", &cfg.Hand.ReleaseThreshold)

	boolean("voice.enabled", &cfg.Voice.Enabled)
	if v.IsSet("voice.command") {
		cfg.Voice.Command = strings.Fields(v.GetString("voice.command"))
	}
	integer("voice.restart_delay_ms", &cfg.Voice.RestartDelayMS)

	int64v("dispatch.cooldown_ms", &cfg.Dispatch.CooldownMS)
	integer("dispatch.double_tap_gap_ms", &cfg.Dispatch.DoubleTapGapMS)
	integer("dispatch.tap_duration_ms", &cfg.Dispatch.TapDurationMS)
	integer("dispatch.long_press_ms", &cfg.Dispatch.LongPressMS)
	integer("dispatch.swipe_duration_ms", &cfg.Dispatch.SwipeDurationMS)
	integer("dispatch.status_reset_ms", &cfg.Dispatch.StatusResetMS)
	integer("dispatch.queue_size", &cfg.Dispatch.QueueSize)

	str("logging.level", &cfg.Logging.Level)
	str("logging.format", &cfg.Logging.Format)
	boolean("tray.enabled", &cfg.Tray.Enabled)
}

// FlagOverrides holds values from command-line flags. A nil pointer means
// the flag was not given.
type FlagOverrides struct {
	Addr      *string
	StaticDir *string
	StorePath *string
	PluginDir *string
	Injector  *string
	CameraID  *int
	NoCamera  *bool
	NoTray    *bool
	Voice     *bool
	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Addr != nil {
		cfg.Server.Addr = *o.Addr
	}
	if o.StaticDir != nil {
		cfg.Server.StaticDir = *o.StaticDir
	}
	if o.StorePath != nil {
		cfg.Store.Path = *o.StorePath
	}
	if o.PluginDir != nil {
		cfg.Plugins.Dir = *o.PluginDir
	}
	if o.Injector != nil {
		cfg.Plugins.Injector = *o.Injector
	}
	if o.CameraID != nil {
		cfg.Camera.DeviceID = *o.CameraID
	}
	if o.NoCamera != nil && *o.NoCamera {
		cfg.Camera.Enabled = false
	}
	if o.NoTray != nil && *o.NoTray {
		cfg.Tray.Enabled = false
	}
	if o.Voice != nil {
		cfg.Voice.Enabled = *o.Voice
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	if c.Plugins.TimeoutMS <= 0 {
		return errors.New("plugins.timeout_ms must be > 0")
	}

	if c.Camera.IdleFPS <= 0 || c.Camera.ActiveFPS <= 0 {
		return errors.New("camera.idle_fps and camera.active_fps must be > 0")
	}
	if c.Camera.IdleFPS > c.Camera.ActiveFPS {
		return errors.New("camera.idle_fps must be <= camera.active_fps")
	}
	if c.Camera.MotionThreshold < 0 {
		return errors.New("camera.motion_threshold must be >= 0")
	}

	if c.Face.CooldownMS < 0 || c.Face.DoubleBlinkWindowMS <= 0 {
		return errors.New("face.cooldown_ms must be >= 0 and face.double_blink_window_ms > 0")
	}
	if c.Face.EyeClosedThreshold <= 0 || c.Face.EyeClosedThreshold >= 1 {
		return errors.New("face.eye_closed_threshold must be between 0 and 1")
	}
	if c.Face.MouthOpenThreshold <= 0 {
		return errors.New("face.mouth_open_threshold must be > 0")
	}

	if c.Hand.CooldownMS < 0 {
		return errors.New("hand.cooldown_ms must be >= 0")
	}
	if c.Hand.PinchThreshold <= 0 || c.Hand.PinchThreshold >= c.Hand.ReleaseThreshold {
		return errors.New("hand.pinch_threshold must be > 0 and < hand.release_threshold")
	}

	if c.Voice.RestartDelayMS < 0 {
		return errors.New("voice.restart_delay_ms must be >= 0")
	}

	d := c.Dispatch
	if d.CooldownMS < 0 {
		return errors.New("dispatch.cooldown_ms must be >= 0")
	}
	if d.DoubleTapGapMS <= 0 || d.TapDurationMS <= 0 || d.LongPressMS <= 0 || d.SwipeDurationMS <= 0 {
		return errors.New("dispatch durations must be > 0")
	}
	if d.QueueSize <= 0 {
		return errors.New("dispatch.queue_size must be > 0")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// FaceDetector converts the face section for the detector.
func (c *Config) FaceDetector() gesture.FaceConfig {
	return gesture.FaceConfig{
		CooldownMs:          c.Face.CooldownMS,
		MouthOpenThreshold:  c.Face.MouthOpenThreshold,
		EyeClosedThreshold:  c.Face.EyeClosedThreshold,
		DoubleBlinkWindowMs: c.Face.DoubleBlinkWindowMS,
	}
}

// HandDetector converts the hand section for the detector.
func (c *Config) HandDetector() gesture.HandConfig {
	return gesture.HandConfig{
		CooldownMs:       c.Hand.CooldownMS,
		PinchThreshold:   c.Hand.PinchThreshold,
		ReleaseThreshold: c.Hand.ReleaseThreshold,
	}
}

// Dispatcher converts the dispatch section for the dispatcher.
func (c *Config) Dispatcher() dispatch.Config {
	return dispatch.Config{
		CooldownMs:        c.Dispatch.CooldownMS,
		DoubleTapGap:      ms(c.Dispatch.DoubleTapGapMS),
		TapDuration:       ms(c.Dispatch.TapDurationMS),
		LongPressDuration: ms(c.Dispatch.LongPressMS),
		QueueSize:         c.Dispatch.QueueSize,
	}
}

// PluginConfig encodes plugins.config as the JSON object sent to the
// injector plugin. It is nil when no config is set.
func (c *Config) PluginConfig() (json.RawMessage, error) {
	if len(c.Plugins.Config) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(c.Plugins.Config)
	if err != nil {
		return nil, fmt.Errorf("encode plugins.config: %w", err)
	}
	return raw, nil
}

// Status converts the status reset setting for the status hub.
func (c *Config) Status() status.Config {
	cfg := status.DefaultConfig()
	cfg.ResetAfter = ms(c.Dispatch.StatusResetMS)
	return cfg
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
