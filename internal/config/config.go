/*------------------------------------------------------------------------------
* config.go : receiver.yaml settings document (§10.5)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* one keyed option per setting, looked up and validated before it
* replaces a live value - the same discipline as options.go's Opt
* table (SearchOpt/Str2Opt), generalized from flat key=value text to a
* structured YAML document. track.loop_params stays a single string
* leaf, still parsed by its own §4.4 grammar rather than being
* flattened into YAML fields.
 */
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trackcore/track"
)

/* Config is the root of receiver.yaml. */
type Config struct {
	NumChannels int             `yaml:"n_channels"`
	Device      DeviceConfig    `yaml:"device"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	LoopParams  string          `yaml:"loop_params"`
	TraceLevel  int             `yaml:"trace_level"`
}

type DeviceConfig struct {
	Sim  bool   `yaml:"sim"`
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type TelemetryConfig struct {
	WebsocketAddr string `yaml:"websocket_addr"`
	MQTTBrokerURL string `yaml:"mqtt_broker_url"`
	CompressIQ    bool   `yaml:"compress_iq"`
	RTPAddr       string `yaml:"rtp_addr"`
}

/* defaults mirrors the settings surface's documented defaults
 * (SPEC_FULL.md §6); Load applies them before unmarshal so a document
 * only needs to override what it cares about. */
func defaults() Config {
	return Config{
		NumChannels: 12,
		Device:      DeviceConfig{Sim: true, Baud: 115200},
		Telemetry:   TelemetryConfig{WebsocketAddr: ":8088"},
		LoopParams:  track.DefaultLoopParamsText,
		TraceLevel:  2,
	}
}

/* Load reads and validates path; loop_params is parsed eagerly so a
 * malformed grammar is caught at startup rather than at the first
 * channel Init. */
func Load(path string) (Config, error) {
	cfg := defaults()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.NumChannels <= 0 {
		return cfg, fmt.Errorf("config: n_channels must be positive, got %d", cfg.NumChannels)
	}
	if _, err := track.ParseLoopParams(cfg.LoopParams); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
