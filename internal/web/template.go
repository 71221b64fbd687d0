package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ptt-indicator/internal/logic"
	"github.com/sweeney/ptt-indicator/internal/status"
)

var ledNames = [logic.NumLEDs]string{
	logic.LEDStatus: "Status",
	logic.LEDMute:   "Mute",
	logic.LEDKeycap: "Keycap",
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
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
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"hex":     status.HexColor,
	"ledName": func(i int) string { return ledNames[i] },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>PTT Indicator</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
.led { display: inline-block; width: 14px; height: 14px; border-radius: 50%; border: 1px solid #444; vertical-align: middle; margin-right: 6px; }
</style>
</head>
<body>
<h1>PTT Indicator</h1>

<h2>State</h2>
<table>
<tr><th>Mode</th><td id="mode">{{.Mode}}</td></tr>
<tr><th>Enabled</th><td>{{yesno .Device.Enabled}}</td></tr>
<tr><th>Muted</th><td>{{yesno .Device.Muted}}</td></tr>
<tr><th>Talking</th><td>{{yesno .Device.TalkActive}}</td></tr>
<tr><th>Host ready</th><td>{{yesno .Device.HostReady}}</td></tr>
</table>

<h2>LEDs</h2>
<table>
{{range $i, $c := .Frame.Pixels}}<tr><th>{{ledName $i}}</th><td><span class="led" style="background: {{hex $c}}"></span>{{hex $c}}</td></tr>
{{end}}<tr><th>Animation</th><td>{{.Frame.Animation}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Host link</th><td class="{{if .Device.LinkActive}}connected{{else}}disconnected{{end}}">{{if .Device.LinkActive}}active{{else}}standby{{end}}</td></tr>
<tr><th>Port</th><td>{{.Link.Port}}{{if .Link.Presence}} ({{.Link.Presence}}{{if .Link.Present}} high{{else}} low{{end}}){{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>PTT pressed</th><td>{{.Counts.PTTPressed}}</td></tr>
<tr><th>PTT released</th><td>{{.Counts.PTTReleased}}</td></tr>
<tr><th>Toggles</th><td>{{.Counts.Toggles}}</td></tr>
<tr><th>Link up</th><td>{{.Counts.LinkUps}}</td></tr>
<tr><th>Timeouts</th><td>{{.Counts.Timeouts}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Version</th><td>{{.Config.Version}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Hold</th><td>{{.Config.HoldMs}}ms</td></tr>
<tr><th>Link timeout</th><td>{{.Config.LinkTimeoutMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
