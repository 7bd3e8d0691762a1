package status

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeney/radar-sensor/internal/sonar"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	State         string     `json:"state"`
	Ready         bool       `json:"ready"`
	AngleDeg      uint8      `json:"angle_deg"`
	DistanceMM    *uint32    `json:"distance_mm"`
	NoEcho        bool       `json:"no_echo"`
	Tasks         int        `json:"tasks"`
	DroppedEdges  uint32     `json:"dropped_edges"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	Standby int `json:"standby"`
	Sensing int `json:"sensing"`
	Warning int `json:"warning"`
	Pings   int `json:"pings"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	WarningMM        uint32 `json:"warning_mm"`
	AlertMM          uint32 `json:"alert_mm"`
	CautionMM        uint32 `json:"caution_mm"`
	StandbyTimeoutMs int64  `json:"standby_timeout_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Chip             string `json:"chip"`
}

func buildInner(snap Snapshot) StatusInner {
	state := "UNKNOWN"
	if snap.Started {
		state = snap.Radar.State.String()
	}

	inner := StatusInner{
		State:         state,
		Ready:         snap.Started,
		AngleDeg:      snap.Radar.Angle,
		Tasks:         snap.Radar.Tasks,
		DroppedEdges:  snap.DroppedEdges,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Counts: CountsJSON{
			Standby: snap.Radar.Counts.Standby,
			Sensing: snap.Radar.Counts.Sensing,
			Warning: snap.Radar.Counts.Warning,
			Pings:   snap.Radar.Counts.Pings,
		},
		Config: ConfigJSON{
			WarningMM:        snap.Config.WarningMM,
			AlertMM:          snap.Config.AlertMM,
			CautionMM:        snap.Config.CautionMM,
			StandbyTimeoutMs: snap.Config.StandbyTimeoutMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Chip:             snap.Config.Chip,
		},
	}

	if snap.Radar.HaveDistance {
		if snap.Radar.LastDistance == sonar.NoEcho {
			inner.NoEcho = true
		} else {
			d := snap.Radar.LastDistance
			inner.DistanceMM = &d
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the status file.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the one-line JSON status logged for a system
// event such as STARTUP, HEARTBEAT or SHUTDOWN.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// WriteFile atomically replaces path with the JSON status.
func WriteFile(path string, snap Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".status-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(FormatJSON(snap), '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
