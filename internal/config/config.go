package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/unit-simulator/core"
	"github.com/signalsfoundry/unit-simulator/internal/logging"
	"github.com/signalsfoundry/unit-simulator/internal/observability"
	"github.com/signalsfoundry/unit-simulator/model"
	"github.com/signalsfoundry/unit-simulator/timectrl"
)

// EnvPrefix is prepended to every environment override, e.g. UNITSIM_LOGLEVEL.
const EnvPrefix = "UNITSIM"

// DefaultCatalogPath is where the subtype catalog is read from when the
// config does not name one.
const DefaultCatalogPath = "configs/unit_subtypes.json"

// Settings is everything the simulator binary needs for one run.
type Settings struct {
	Sim         core.Config
	Seed        uint64
	CatalogPath string
	Log         logging.Config
	Tracing     observability.TracingConfig

	MetricsTextfile string
	TracksPath      string
	TrackCRS        string
}

// UnitEntry is the JSON shape of one configured unit.
type UnitEntry struct {
	ID       string   `json:"id" mapstructure:"id"`
	Category string   `json:"category" mapstructure:"category"`
	Subtype  string   `json:"subtype" mapstructure:"subtype"`
	Speed    float64  `json:"speed" mapstructure:"speed"`
	Course   float64  `json:"course" mapstructure:"course"`
	Altitude float64  `json:"altitude" mapstructure:"altitude"`
	Depth    float64  `json:"depth" mapstructure:"depth"`
	Lat      *float64 `json:"lat" mapstructure:"lat"`
	Lon      *float64 `json:"lon" mapstructure:"lon"`
	TLE1     string   `json:"tle1" mapstructure:"tle1"`
	TLE2     string   `json:"tle2" mapstructure:"tle2"`
}

func setDefaults() {
	box := core.DefaultBoundingBox
	viper.SetDefault("boundingBox", []float64{box.MinLon, box.MinLat, box.MaxLon, box.MaxLat})
	viper.SetDefault("interval", core.DefaultInterval.String())
	viper.SetDefault("duration", core.DefaultDuration.String())
	viper.SetDefault("startTime", "")
	viper.SetDefault("seed", 0)
	viper.SetDefault("catalogPath", DefaultCatalogPath)
	viper.SetDefault("mode", timectrl.Accelerated.String())

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFormat", "text")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.output", "")
	viper.SetDefault("tracing.serviceName", "unit-simulator")
	viper.SetDefault("tracing.sampleRatio", 1.0)

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("output.tracks", "")
	viper.SetDefault("output.trackCRS", "EPSG:4326")
}

// Load sets defaults, applies UNITSIM_ environment overrides and reads the
// JSON file at path when path is non-empty.
func Load(path string) (*Settings, error) {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("json")
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode()
}

func decode() (*Settings, error) {
	var bbox []float64
	if err := viper.UnmarshalKey("boundingBox", &bbox); err != nil {
		return nil, fmt.Errorf("boundingBox: %w", err)
	}
	box, err := model.BoundingBoxFromSlice(bbox)
	if err != nil {
		return nil, err
	}

	interval, err := parseDuration("interval")
	if err != nil {
		return nil, err
	}
	duration, err := parseDuration("duration")
	if err != nil {
		return nil, err
	}

	start := time.Now().UTC()
	if s := viper.GetString("startTime"); s != "" {
		start, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("startTime: %w", err)
		}
	}

	mode, err := timectrl.ParseMode(viper.GetString("mode"))
	if err != nil {
		return nil, err
	}

	units := core.DefaultUnits()
	if viper.IsSet("units") {
		var entries []UnitEntry
		if err := viper.UnmarshalKey("units", &entries); err != nil {
			return nil, fmt.Errorf("units: %w", err)
		}
		if units, err = unitSpecs(entries); err != nil {
			return nil, err
		}
	}

	s := &Settings{
		Sim: core.Config{
			BoundingBox: box,
			Interval:    interval,
			Duration:    duration,
			StartTime:   start,
			Mode:        mode,
			Units:       units,
		},
		Seed:        viper.GetUint64("seed"),
		CatalogPath: viper.GetString("catalogPath"),
		Log: logging.Config{
			Level:  viper.GetString("logLevel"),
			Format: viper.GetString("logFormat"),
		},
		Tracing: observability.TracingConfig{
			Enabled:     viper.GetBool("tracing.enabled"),
			ServiceName: viper.GetString("tracing.serviceName"),
			Output:      viper.GetString("tracing.output"),
			SampleRatio: viper.GetFloat64("tracing.sampleRatio"),
		},
		MetricsTextfile: viper.GetString("metrics.textfile"),
		TracksPath:      viper.GetString("output.tracks"),
		TrackCRS:        viper.GetString("output.trackCRS"),
	}
	if err := s.Sim.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func unitSpecs(entries []UnitEntry) ([]core.UnitSpec, error) {
	specs := make([]core.UnitSpec, 0, len(entries))
	var errs []error
	for i, e := range entries {
		cat, err := model.ParseCategory(e.Category)
		if err != nil {
			errs = append(errs, fmt.Errorf("units[%d]: %w", i, err))
			continue
		}
		spec := core.UnitSpec{
			ID:         e.ID,
			Category:   cat,
			Subtype:    e.Subtype,
			SpeedKnots: e.Speed,
			CourseDeg:  e.Course,
			AltitudeM:  e.Altitude,
			DepthM:     e.Depth,
			TLELine1:   e.TLE1,
			TLELine2:   e.TLE2,
		}
		switch {
		case e.Lat != nil && e.Lon != nil:
			spec.Start = &model.Position{Lat: *e.Lat, Lon: *e.Lon}
		case e.Lat != nil || e.Lon != nil:
			errs = append(errs, fmt.Errorf("units[%d]: lat and lon must be set together", i))
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errors.Join(errs...)
}
