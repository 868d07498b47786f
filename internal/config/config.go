// Package config — конфигурация atlas-time-sync (YAML). Все параметры статичны на время работы процесса.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config — корень конфигурации
type Config struct {
	WiFi         WiFiConfig         `yaml:"wifi"`
	RemoteAccess RemoteAccessConfig `yaml:"remote_access"`
	TimeSource   TimeSourceConfig   `yaml:"time_source"`
	Sync         SyncConfig         `yaml:"sync"`
	RTC          RTCConfig          `yaml:"rtc"`
	HeadUnit     HeadUnitConfig     `yaml:"head_unit"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// WiFiConfig — точка доступа и параметры подключения station.
type WiFiConfig struct {
	SSID             string   `yaml:"ssid"`
	Password         string   `yaml:"password"`
	Interface        string   `yaml:"interface"`
	ConnectAttempts  int      `yaml:"connect_attempts"`
	ConnectDelayMs   int      `yaml:"connect_delay_ms"`
	CommandTimeoutMs int      `yaml:"command_timeout_ms"`
	WpaCliPath       string   `yaml:"wpa_cli_path"`
	StartSupplicant  bool     `yaml:"start_supplicant"`
	SupplicantPath   string   `yaml:"supplicant_path"`
	SupplicantConfig string   `yaml:"supplicant_config"`
	SupplicantArgs   []string `yaml:"supplicant_args"`
}

// RemoteAccessConfig — пароль сервиса удалённого доступа; принимается, сервис не запускается.
type RemoteAccessConfig struct {
	Password string `yaml:"password"`
}

// TimeSourceConfig — сетевые источники времени и поправка зоны head unit.
type TimeSourceConfig struct {
	PrimaryClocks     []ClockSource `yaml:"primary_clocks"`
	SecondaryClocks   []ClockSource `yaml:"secondary_clocks"`
	Correction        string        `yaml:"correction"`
	TargetOffsetHours float64       `yaml:"target_offset_hours"`
}

// ClockSource — один сетевой источник (protocol: ipgeolocation, ntp)
type ClockSource struct {
	Protocol  string `yaml:"protocol"`
	Disable   bool   `yaml:"disable"`
	APIKey    string `yaml:"api_key"`
	Endpoint  string `yaml:"endpoint"`
	IP        string `yaml:"ip"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// SyncConfig — интервалы оркестратора, миллисекунды.
type SyncConfig struct {
	SyncIntervalMs  int64 `yaml:"sync_interval_ms"`
	PushIntervalMs  int64 `yaml:"push_interval_ms"`
	TickMs          int64 `yaml:"tick_ms"`
	PushAfterSync   bool  `yaml:"push_after_sync"`
	SyncOnReconnect bool  `yaml:"sync_on_reconnect"`
}

// RTCConfig — DS3231 на шине I2C
type RTCConfig struct {
	Bus             string `yaml:"bus"`
	Address         uint16 `yaml:"address"`
	SeedSystemClock bool   `yaml:"seed_system_clock"`
}

// HeadUnitConfig — последовательный канал к head unit
type HeadUnitConfig struct {
	Device         string `yaml:"device"`
	Baud           int    `yaml:"baud"`
	Driver         string `yaml:"driver"`
	ReplyTimeoutMs int    `yaml:"reply_timeout_ms"`
}

// MetricsConfig — адрес HTTP для /metrics; пусто — выключено.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Протоколы источников и драйверы порта
const (
	ProtocolIPGeolocation = "ipgeolocation"
	ProtocolNTP           = "ntp"

	DriverBugst = "bugst"
	DriverTarm  = "tarm"
)

// Default возвращает конфиг по умолчанию (значения прошивки устройства).
func Default() *Config {
	return &Config{
		WiFi: WiFiConfig{
			Interface:        "wlan0",
			ConnectAttempts:  200,
			ConnectDelayMs:   100,
			CommandTimeoutMs: 5000,
			WpaCliPath:       "wpa_cli",
			SupplicantPath:   "wpa_supplicant",
			SupplicantConfig: "/etc/wpa_supplicant/wpa_supplicant.conf",
		},
		TimeSource: TimeSourceConfig{
			Correction:        "legacy",
			TargetOffsetHours: 3,
		},
		Sync: SyncConfig{
			SyncIntervalMs: 2 * 3600 * 1000,
			PushIntervalMs: 60 * 1000,
			TickMs:         15 * 1000,
		},
		RTC: RTCConfig{
			Address: 0x68,
		},
		HeadUnit: HeadUnitConfig{
			Device:         "/dev/ttyS2",
			Baud:           921600,
			Driver:         DriverBugst,
			ReplyTimeoutMs: 2000,
		},
	}
}

// Load читает конфиг из YAML и подставляет умолчания. Проверка — Validate, после
// применения переопределений из окружения и флагов.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML-документ конфигурации.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.WiFi.Interface == "" {
		c.WiFi.Interface = d.WiFi.Interface
	}
	if c.WiFi.ConnectAttempts == 0 {
		c.WiFi.ConnectAttempts = d.WiFi.ConnectAttempts
	}
	if c.WiFi.ConnectDelayMs == 0 {
		c.WiFi.ConnectDelayMs = d.WiFi.ConnectDelayMs
	}
	if c.WiFi.CommandTimeoutMs == 0 {
		c.WiFi.CommandTimeoutMs = d.WiFi.CommandTimeoutMs
	}
	if c.WiFi.WpaCliPath == "" {
		c.WiFi.WpaCliPath = d.WiFi.WpaCliPath
	}
	if c.WiFi.SupplicantPath == "" {
		c.WiFi.SupplicantPath = d.WiFi.SupplicantPath
	}
	if c.WiFi.SupplicantConfig == "" {
		c.WiFi.SupplicantConfig = d.WiFi.SupplicantConfig
	}
	if c.TimeSource.Correction == "" {
		c.TimeSource.Correction = d.TimeSource.Correction
	}
	if c.Sync.SyncIntervalMs == 0 {
		c.Sync.SyncIntervalMs = d.Sync.SyncIntervalMs
	}
	if c.Sync.PushIntervalMs == 0 {
		c.Sync.PushIntervalMs = d.Sync.PushIntervalMs
	}
	if c.Sync.TickMs == 0 {
		c.Sync.TickMs = d.Sync.TickMs
	}
	if c.RTC.Address == 0 {
		c.RTC.Address = d.RTC.Address
	}
	if c.HeadUnit.Device == "" {
		c.HeadUnit.Device = d.HeadUnit.Device
	}
	if c.HeadUnit.Baud == 0 {
		c.HeadUnit.Baud = d.HeadUnit.Baud
	}
	if c.HeadUnit.Driver == "" {
		c.HeadUnit.Driver = d.HeadUnit.Driver
	}
	if c.HeadUnit.ReplyTimeoutMs == 0 {
		c.HeadUnit.ReplyTimeoutMs = d.HeadUnit.ReplyTimeoutMs
	}
}

// Validate проверяет значения после подстановки умолчаний.
func (c *Config) Validate() error {
	var errs []error
	if c.Sync.SyncIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("sync.sync_interval_ms must be positive, got %d", c.Sync.SyncIntervalMs))
	}
	if c.Sync.PushIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("sync.push_interval_ms must be positive, got %d", c.Sync.PushIntervalMs))
	}
	if c.Sync.TickMs <= 0 {
		errs = append(errs, fmt.Errorf("sync.tick_ms must be positive, got %d", c.Sync.TickMs))
	}
	if c.WiFi.ConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("wifi.connect_attempts must be at least 1, got %d", c.WiFi.ConnectAttempts))
	}
	if c.WiFi.ConnectDelayMs < 0 {
		errs = append(errs, fmt.Errorf("wifi.connect_delay_ms must not be negative, got %d", c.WiFi.ConnectDelayMs))
	}
	switch c.TimeSource.Correction {
	case "legacy", "difference", "none":
	default:
		errs = append(errs, fmt.Errorf("time_source.correction: unknown policy %q", c.TimeSource.Correction))
	}
	switch c.HeadUnit.Driver {
	case DriverBugst, DriverTarm:
	default:
		errs = append(errs, fmt.Errorf("head_unit.driver: unknown driver %q", c.HeadUnit.Driver))
	}
	for _, group := range []struct {
		name    string
		sources []ClockSource
	}{
		{"primary_clocks", c.TimeSource.PrimaryClocks},
		{"secondary_clocks", c.TimeSource.SecondaryClocks},
	} {
		for i, s := range group.sources {
			if s.Disable {
				continue
			}
			switch s.Protocol {
			case ProtocolIPGeolocation:
				if s.APIKey == "" {
					errs = append(errs, fmt.Errorf("time_source.%s[%d]: ipgeolocation requires api_key", group.name, i))
				}
			case ProtocolNTP:
				if s.IP == "" {
					errs = append(errs, fmt.Errorf("time_source.%s[%d]: ntp requires ip", group.name, i))
				}
			default:
				errs = append(errs, fmt.Errorf("time_source.%s[%d]: unknown protocol %q", group.name, i, s.Protocol))
			}
		}
	}
	return errors.Join(errs...)
}

// SetAPIKey заменяет ключ API во всех источниках ipgeolocation (ключ из окружения или флага
// вместо файла). Без источников в конфиге добавляет primary ipgeolocation.
func (c *Config) SetAPIKey(key string) {
	if key == "" {
		return
	}
	for _, group := range [][]ClockSource{c.TimeSource.PrimaryClocks, c.TimeSource.SecondaryClocks} {
		for i := range group {
			if group[i].Protocol == ProtocolIPGeolocation {
				group[i].APIKey = key
			}
		}
	}
	if len(c.TimeSource.PrimaryClocks) == 0 && len(c.TimeSource.SecondaryClocks) == 0 {
		c.TimeSource.PrimaryClocks = []ClockSource{{Protocol: ProtocolIPGeolocation, APIKey: key}}
	}
}

// Intervals возвращает интервалы синхронизации, push и тика как time.Duration.
func (s SyncConfig) Intervals() (syncEvery, pushEvery, tick time.Duration) {
	return time.Duration(s.SyncIntervalMs) * time.Millisecond,
		time.Duration(s.PushIntervalMs) * time.Millisecond,
		time.Duration(s.TickMs) * time.Millisecond
}

// Millis переводит миллисекунды конфига в time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
