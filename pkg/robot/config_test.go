package robot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestLoadConfigFrom_ExpandsEnv(t *testing.T) {
	t.Setenv("DXL_PORT", "/dev/ttyACM7")

	path := filepath.Join(t.TempDir(), "robot.json")
	data := `{
  "port": "${DXL_PORT}",
  "timeout_ms": 50,
  "motors": {"pan": {"id": 1, "range_min": 0, "range_max": 4095}}
}`
	test.That(t, os.WriteFile(path, []byte(data), 0644), test.ShouldBeNil)

	cfg, err := LoadConfigFrom(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Port, test.ShouldEqual, "/dev/ttyACM7")
	test.That(t, cfg.Timeout(), test.ShouldEqual, 50*time.Millisecond)
	test.That(t, cfg.Motors["pan"].RangeMax, test.ShouldEqual, 4095)
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	test.That(t, ConfigExists(path), test.ShouldBeFalse)

	cfg := &Config{Driver: DriverFake, SyncHz: 25, Motors: SO101()}
	test.That(t, cfg.SaveTo(path), test.ShouldBeNil)
	test.That(t, ConfigExists(path), test.ShouldBeTrue)

	loaded, err := LoadConfigFrom(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded, test.ShouldResemble, cfg)

	_, err = LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		err  string
	}{
		{"feetech without port", Config{Motors: SO101()}, "needs a port"},
		{"unknown driver", Config{Driver: "can", Motors: SO101()}, "unknown driver"},
		{"no motors", Config{Driver: DriverFake}, "no motors"},
		{"bad id", Config{Driver: DriverFake, Motors: Calibration{"a": {ID: 300}}}, "out of range"},
		{"duplicate id", Config{Driver: DriverFake, Motors: Calibration{"a": {ID: 1}, "b": {ID: 1}}}, "share id 1"},
		{"inverted range", Config{Driver: DriverFake, Motors: Calibration{"a": {ID: 1, RangeMin: 10, RangeMax: 5}}}, "range_min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tt.err)
		})
	}
}
