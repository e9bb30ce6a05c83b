package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyGroup      = "group"
	KeyRecord     = "record"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyTemplate   = "template"
	KeyRenderer   = "renderer"
	KeyTarget     = "target"
	KeyBackend    = "backend"
	KeyBuildID    = "build_id"
	KeyCommand    = "command"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyScheduleID = "schedule_id"
	KeyMethod     = "method"
	KeyURL        = "url"
	KeyRemoteAddr = "remote_addr"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyName       = "name"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Group(id string) slog.Attr        { return slog.String(KeyGroup, id) }
func Record(id string) slog.Attr       { return slog.String(KeyRecord, id) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func File(f string) slog.Attr          { return slog.String(KeyFile, f) }
func Template(name string) slog.Attr   { return slog.String(KeyTemplate, name) }
func Renderer(tag string) slog.Attr    { return slog.String(KeyRenderer, tag) }
func Target(kind string) slog.Attr     { return slog.String(KeyTarget, kind) }
func Backend(b string) slog.Attr       { return slog.String(KeyBackend, b) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Command(c string) slog.Attr       { return slog.String(KeyCommand, c) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func ScheduleID(id string) slog.Attr   { return slog.String(KeyScheduleID, id) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func Name(n string) slog.Attr          { return slog.String(KeyName, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
