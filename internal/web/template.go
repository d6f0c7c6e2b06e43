package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/canary/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatDuration,
	"ms": func(ms int64) string {
		return formatDuration(time.Duration(ms) * time.Millisecond)
	},
	"stateClass": func(s string) string {
		switch s {
		case "WAIT":
			return "ok"
		case "SHUTDOWN", "BOOT":
			return "alarm"
		}
		return "unknown"
	},
}).Parse(indexHTML))

// formatDuration renders d as "1d 2h 3m 4s", dropping leading zero units.
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Canary</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.alarm { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Canary</h1>

<h2>Watchdog</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .State}}">{{.State}}</td></tr>
<tr><th>Idle</th><td>{{uptime .Idle}} of {{uptime .Timeout}} ({{.Monitor.Ticks}}/{{.Monitor.Timeout}} ticks)</td></tr>
<tr><th>Progress</th><td>{{.Monitor.Progress}}</td></tr>
<tr><th>Switches</th><td>{{.Monitor.Switches.Selection}} ({{.Monitor.Mode}} mode)</td></tr>
<tr><th>Last activity</th><td>{{if .Monitor.LastActivity.IsZero}}never{{else}}{{.Monitor.LastActivity.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
{{if .Monitor.CycleID}}<tr><th>Power cycle</th><td>{{.Monitor.CycleID}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Activity</th><td>{{.Monitor.Counts.Activity}}</td></tr>
<tr><th>Shutdowns</th><td>{{.Monitor.Counts.Shutdowns}}</td></tr>
<tr><th>Boots</th><td>{{.Monitor.Counts.Boots}}</td></tr>
<tr><th>Recoveries</th><td>{{.Monitor.Counts.Recoveries}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Session</th><td>{{.SessionID}}</td></tr>
<tr><th>Tick</th><td>{{ms .Config.TickPeriodMs}}</td></tr>
<tr><th>Idle unit</th><td>{{ms .Config.IdleUnitMs}}</td></tr>
<tr><th>Grace</th><td>{{ms .Config.GraceMs}}</td></tr>
<tr><th>Timeout table</th><td>{{range $i, $u := .Config.Table}}{{if $i}}, {{end}}{{$u}}{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{ms .Config.HeartbeatMs}}{{end}}</td></tr>
<tr><th>Hardware watchdog</th><td>{{if .Config.Watchdog}}{{.Config.Watchdog}}{{else}}disabled{{end}}</td></tr>
<tr><th>Self test</th><td>{{if .Config.SelfTest}}on{{else}}off{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	tick := time.Duration(snap.Config.TickPeriodMs) * time.Millisecond
	state := string(snap.Monitor.State)
	if state == "" || !snap.Ready {
		state = "UNKNOWN"
	}
	data := struct {
		status.Snapshot
		State   string
		Uptime  time.Duration
		Idle    time.Duration
		Timeout time.Duration
	}{
		Snapshot: snap,
		State:    state,
		Uptime:   snap.Uptime(),
		Idle:     time.Duration(snap.Monitor.Ticks) * tick,
		Timeout:  time.Duration(snap.Monitor.Timeout) * tick,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
