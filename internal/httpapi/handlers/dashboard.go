package handlers

import (
	"net/http"
	"strings"

	"github.com/tulenlabs/tulen-connect/internal/version"
)

func init() {
	// Inject version into the HTML template at startup
	dashboardHTML = strings.ReplaceAll(dashboardHTML, "{{VERSION}}", version.Version)
}

// DashboardHandler serves the minimal operator dashboard: one status badge
// per platform plus connect/refresh/disconnect actions. The real analytics
// frontend lives elsewhere; this page exists for operators and debugging.
// GET /
func DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(dashboardHTML))
	}
}

var dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Tulen Connect</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 860px; margin: 40px auto; padding: 20px; background: #1a1a2e; color: #eee; }
		h1 { font-size: 1.4em; }
		.version { color: #9ca3af; font-size: 0.8em; margin-left: 8px; }
		table { width: 100%; border-collapse: collapse; margin-top: 20px; }
		th, td { text-align: left; padding: 10px 12px; border-bottom: 1px solid #374151; }
		.badge { padding: 2px 10px; border-radius: 10px; font-size: 0.85em; }
		.badge.connected { background: #14532d; color: #4ade80; }
		.badge.expired { background: #713f12; color: #fbbf24; }
		.badge.error { background: #7f1d1d; color: #f87171; }
		.badge.not-connected { background: #374151; color: #9ca3af; }
		button, a.btn { background: #374151; color: #eee; border: none; border-radius: 6px; padding: 5px 12px; margin-right: 6px; cursor: pointer; text-decoration: none; font-size: 0.85em; }
		button:hover, a.btn:hover { background: #4b5563; }
		.error-text { color: #f87171; font-size: 0.8em; }
	</style>
</head>
<body>
	<h1>🔌 Tulen Connect<span class="version">{{VERSION}}</span></h1>
	<table>
		<thead><tr><th>Platform</th><th>Status</th><th>Account</th><th>Last sync</th><th>Actions</th></tr></thead>
		<tbody id="rows"></tbody>
	</table>
	<script>
		async function load() {
			const res = await fetch('/api/integrations');
			const data = await res.json();
			const rows = document.getElementById('rows');
			rows.innerHTML = '';
			for (const it of data.integrations) {
				const tr = document.createElement('tr');
				const account = it.account_info ? (it.account_info.name || it.account_info.id) : '—';
				const lastSync = it.last_sync ? new Date(it.last_sync).toLocaleString() : '—';
				const err = it.last_error ? '<div class="error-text">' + it.last_error + '</div>' : '';
				tr.innerHTML =
					'<td>' + it.label + '</td>' +
					'<td><span class="badge ' + it.status + '">' + it.status + '</span>' + err + '</td>' +
					'<td>' + account + '</td>' +
					'<td>' + lastSync + '</td>' +
					'<td><a class="btn" href="/auth/' + it.platform + '/login">Connect</a>' +
					'<button onclick="act(\'' + it.platform + '\',\'refresh\')">Refresh</button>' +
					'<button onclick="act(\'' + it.platform + '\',\'disconnect\')">Disconnect</button></td>';
				rows.appendChild(tr);
			}
		}
		async function act(platform, action) {
			await fetch('/api/integrations/' + platform + '/' + action, { method: 'POST' });
			load();
		}
		load();
	</script>
</body>
</html>`
