package health

import (
	"bytes"
	"html/template"
	"sort"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Stockfolio · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="30">
  <style>
    :root { --ok: #0f766e; --bad: #dc2626; --ink: #0f172a; --muted: #64748b; --bg: #f8fafc; }
    body { background: var(--bg); color: var(--ink); font-family: system-ui, sans-serif; margin: 0; padding: 40px; }
    h1 { margin: 0 0 4px; font-size: 22px; }
    .pill { display: inline-block; padding: 2px 10px; border-radius: 999px; color: #fff; font-size: 13px; font-weight: 600; }
    .ok { background: var(--ok); } .issue { background: var(--bad); }
    .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(240px, 1fr)); gap: 16px; margin-top: 24px; }
    .card { background: #fff; border: 1px solid #e2e8f0; border-radius: 12px; padding: 16px 20px; }
    .card h2 { font-size: 13px; text-transform: uppercase; color: var(--muted); margin: 0 0 12px; }
    .row { display: flex; justify-content: space-between; padding: 4px 0; font-size: 14px; }
    .big { font-size: 32px; font-weight: 700; }
  </style>
</head>
<body>
  <h1>stockfolio-api <span class="pill {{.Status}}">{{.Status}}</span></h1>
  <div style="color:var(--muted)">{{.Runtime.Platform}} · {{.Runtime.GoVersion}} · up {{.Runtime.UptimeSeconds}}s</div>
  <div class="grid">
    <div class="card">
      <h2>Traffic</h2>
      <div class="big">{{.Traffic.TotalRequests}}</div>
      <div class="row"><span>Successful</span><span>{{.Traffic.SuccessCount}}</span></div>
      <div class="row"><span>Failed</span><span>{{.Traffic.FailedCount}}</span></div>
      <div class="row"><span>Success rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
      <div class="row"><span>Avg response</span><span>{{.Traffic.AvgResponseTime}} ms</span></div>
    </div>
    <div class="card">
      <h2>Runtime</h2>
      <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
      <div class="row"><span>Alloc</span><span>{{.Runtime.Memory.AllocMB}} MB</span></div>
      <div class="row"><span>Heap in use</span><span>{{.Runtime.Memory.HeapUsed}} MB</span></div>
    </div>
    <div class="card">
      <h2>Dependencies</h2>
      {{range .Deps}}<div class="row"><span>{{.Name}}</span><span>{{.Status}}{{if .PingMs}} ({{.PingMs}} ms){{end}}</span></div>
      {{end}}
    </div>
    <div class="card">
      <h2>Last request</h2>
      {{with .Traffic.LastRequest}}
      <div class="row"><span>{{.Method}}</span><span>{{.Path}}</span></div>
      <div class="row"><span>IP</span><span>{{.IP}}</span></div>
      <div class="row"><span>At</span><span>{{.Time.Format "2006-01-02 15:04:05"}}</span></div>
      {{else}}<div class="row"><span>-</span><span>-</span></div>{{end}}
    </div>
  </div>
</body>
</html>`))

type dashboardDep struct {
	Name   string
	Status string
	PingMs int64
}

// RenderDashboardHTML returns the status page served on GET /.
func RenderDashboardHTML(health CollectResult) (string, error) {
	deps := make([]dashboardDep, 0, len(health.Dependencies))
	for name, d := range health.Dependencies {
		dep := dashboardDep{Name: name, Status: d.Status}
		if d.PingMs != nil {
			dep.PingMs = *d.PingMs
		}
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	var buf bytes.Buffer
	err := dashboardTmpl.Execute(&buf, struct {
		CollectResult
		Deps []dashboardDep
	}{health, deps})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
