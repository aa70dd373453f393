package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCount      = "count"
	KeyGoal       = "goal"
	KeyLevel      = "level"
	KeyDate       = "date"
	KeyOutcome    = "outcome"
	KeySurfaceID  = "surface_id"
	KeySurfaces   = "surfaces"
	KeyJobID      = "job_id"
	KeyJobName    = "job_name"
	KeyDelayMS    = "delay_ms"
	KeyNextRun    = "next_run"
	KeyBackend    = "backend"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeySubject    = "subject"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Goal(n int) slog.Attr             { return slog.Int(KeyGoal, n) }
func Level(n int) slog.Attr            { return slog.Int(KeyLevel, n) }
func Date(d string) slog.Attr          { return slog.String(KeyDate, d) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func SurfaceID(id int) slog.Attr       { return slog.Int(KeySurfaceID, id) }
func Surfaces(n int) slog.Attr         { return slog.Int(KeySurfaces, n) }
func JobID(id string) slog.Attr        { return slog.String(KeyJobID, id) }
func JobName(n string) slog.Attr       { return slog.String(KeyJobName, n) }
func NextRun(t time.Time) slog.Attr    { return slog.Time(KeyNextRun, t) }
func Backend(b string) slog.Attr       { return slog.String(KeyBackend, b) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func Subject(s string) slog.Attr       { return slog.String(KeySubject, s) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }

// DelayMS records a scheduling delay in whole milliseconds.
func DelayMS(d time.Duration) slog.Attr { return slog.Int64(KeyDelayMS, d.Milliseconds()) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
