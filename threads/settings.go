/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package threads

import "os"
import "fmt"
import "time"
import "strings"
import "encoding/json"
import "gopkg.in/yaml.v3"
import "github.com/dc0d/onexit"
import "github.com/docker/go-units"
import "github.com/launix-de/blockvm/blocks"

type SettingsT struct {
	Timeout          int     `yaml:"Timeout"`       // ms a process may run before it must yield
	FrameRate        int     `yaml:"FrameRate"`     // ticks per second
	InvokeTimeout    int     `yaml:"InvokeTimeout"` // ms for generic hat predicates
	CatchErrors      bool    `yaml:"CatchErrors"`
	SingleStepping   bool    `yaml:"SingleStepping"`
	FlashTime        int     `yaml:"FlashTime"`     // ms a flashed block stays lit
	ThreadSafe       bool    `yaml:"ThreadSafe"`
	EnableCustomHats bool    `yaml:"EnableCustomHats"`
	Tempo            float64 `yaml:"Tempo"`         // beats per minute
	MaxResponseSize  string  `yaml:"MaxResponseSize"`
	Trace            bool    `yaml:"Trace"`
	TracePrint       bool    `yaml:"TracePrint"`
	LogLevel         string  `yaml:"LogLevel"`
}

var Settings SettingsT = SettingsT{500, 60, 50, true, false, 0, false, true, 60, "16MB", false, false, "info"}

var maxResponseBytes int64 = 16 * 1000 * 1000

// LoadSettings reads a YAML file, or JSON when the name ends in .json.
func LoadSettings(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &Settings)
	} else {
		err = yaml.Unmarshal(data, &Settings)
	}
	if err != nil {
		return fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return nil
}

// call this after you filled Settings
func InitSettings() {
	SetLogLevel(Settings.LogLevel)
	applyResponseSize(Settings.MaxResponseSize)
	SetTrace(Settings.Trace)
	TracePrint = Settings.TracePrint
	onexit.Register(func() { SetTrace(false) }) // close trace file on exit
}

func applyResponseSize(s string) {
	n, err := units.FromHumanSize(s)
	if err != nil {
		panic("invalid MaxResponseSize: " + s)
	}
	maxResponseBytes = n
}

func (s *SettingsT) timeout() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}

func (s *SettingsT) invokeTimeout() time.Duration {
	return time.Duration(s.InvokeTimeout) * time.Millisecond
}

func (s *SettingsT) flashTime() time.Duration {
	return time.Duration(s.FlashTime) * time.Millisecond
}

func ChangeSettings(a ...any) any {
	if len(a) == 0 {
		return blocks.NewList(
			"Timeout", float64(Settings.Timeout),
			"FrameRate", float64(Settings.FrameRate),
			"InvokeTimeout", float64(Settings.InvokeTimeout),
			"CatchErrors", Settings.CatchErrors,
			"SingleStepping", Settings.SingleStepping,
			"FlashTime", float64(Settings.FlashTime),
			"ThreadSafe", Settings.ThreadSafe,
			"EnableCustomHats", Settings.EnableCustomHats,
			"Tempo", Settings.Tempo,
			"MaxResponseSize", Settings.MaxResponseSize,
			"Trace", Settings.Trace,
			"TracePrint", Settings.TracePrint,
			"LogLevel", Settings.LogLevel,
		)
	} else if len(a) == 1 {
		switch blocks.ToText(a[0]) {
		case "Timeout":
			return float64(Settings.Timeout)
		case "FrameRate":
			return float64(Settings.FrameRate)
		case "InvokeTimeout":
			return float64(Settings.InvokeTimeout)
		case "CatchErrors":
			return Settings.CatchErrors
		case "SingleStepping":
			return Settings.SingleStepping
		case "FlashTime":
			return float64(Settings.FlashTime)
		case "ThreadSafe":
			return Settings.ThreadSafe
		case "EnableCustomHats":
			return Settings.EnableCustomHats
		case "Tempo":
			return Settings.Tempo
		case "MaxResponseSize":
			return Settings.MaxResponseSize
		case "Trace":
			return Settings.Trace
		case "TracePrint":
			return Settings.TracePrint
		case "LogLevel":
			return Settings.LogLevel
		default:
			panic("unknown setting: " + blocks.ToText(a[0]))
		}
	} else {
		switch blocks.ToText(a[0]) {
		case "Timeout":
			Settings.Timeout = toInt(a[1])
		case "FrameRate":
			Settings.FrameRate = toInt(a[1])
		case "InvokeTimeout":
			Settings.InvokeTimeout = toInt(a[1])
		case "CatchErrors":
			Settings.CatchErrors = blocks.ToBool(a[1])
		case "SingleStepping":
			Settings.SingleStepping = blocks.ToBool(a[1])
		case "FlashTime":
			Settings.FlashTime = toInt(a[1])
		case "ThreadSafe":
			Settings.ThreadSafe = blocks.ToBool(a[1])
		case "EnableCustomHats":
			Settings.EnableCustomHats = blocks.ToBool(a[1])
		case "Tempo":
			Settings.Tempo = toNumber(a[1])
		case "MaxResponseSize":
			applyResponseSize(blocks.ToText(a[1]))
			Settings.MaxResponseSize = blocks.ToText(a[1])
		case "Trace":
			Settings.Trace = blocks.ToBool(a[1])
			SetTrace(Settings.Trace)
		case "TracePrint":
			Settings.TracePrint = blocks.ToBool(a[1])
			TracePrint = Settings.TracePrint
		case "LogLevel":
			SetLogLevel(blocks.ToText(a[1]))
			Settings.LogLevel = blocks.ToText(a[1])
		default:
			panic("unknown setting: " + blocks.ToText(a[0]))
		}
		return true
	}
}
