package main

import (
	"html/template"
	"net/http"

	"pricewatch/internal/state"
)

// handleHome renders the dashboard with the current snapshot; the page then
// keeps itself current against /api/prices.
func handleHome(holder *state.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		resp := snapshotResponse(holder.Read())
		if resp.GoldPrice == "" {
			resp.GoldPrice = "Loading..."
		}
		if resp.SilverPrice == "" {
			resp.SilverPrice = "Loading..."
		}
		if resp.LastUpdated == "" {
			resp.LastUpdated = "never"
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = homeTmpl.Execute(w, resp)
	}
}

var homeTmpl = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Live Gold &amp; Silver Prices</title>
<style>
body { font-family: 'Segoe UI', sans-serif; background: #16213e; color: #eee;
       display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; }
.container { background: rgba(255,255,255,0.06); border-radius: 16px; padding: 40px; max-width: 480px; width: 100%; }
h1 { color: #ffd700; text-align: center; }
.card { border-radius: 12px; padding: 20px; margin: 16px 0; background: rgba(255,255,255,0.04); }
.card.gold { border-left: 4px solid #ffd700; }
.card.silver { border-left: 4px solid #c0c0c0; }
.label { color: #888; font-size: 0.9rem; }
.value { font-size: 1.8rem; font-weight: bold; }
.gold .value { color: #ffd700; }
.silver .value { color: #c0c0c0; }
.status { text-align: center; color: #888; font-size: 0.85rem; margin-top: 16px; }
</style>
</head>
<body>
<div class="container">
<h1>Live Gold &amp; Silver Prices</h1>
<div class="card gold"><div class="label">Live Gold Price</div><div class="value" id="gold-price">{{.GoldPrice}}</div></div>
<div class="card silver"><div class="label">Live Silver Price</div><div class="value" id="silver-price">{{.SilverPrice}}</div></div>
<div class="status">Status: <span id="status">{{.Status}}</span> | Last updated: <span id="last-updated">{{.LastUpdated}}</span></div>
</div>
<script>
setInterval(async () => {
  try {
    const res = await fetch('/api/prices');
    const data = await res.json();
    if (data.gold_price) document.getElementById('gold-price').textContent = data.gold_price;
    if (data.silver_price) document.getElementById('silver-price').textContent = data.silver_price;
    document.getElementById('status').textContent = data.status;
    if (data.last_updated) document.getElementById('last-updated').textContent = data.last_updated;
  } catch (e) {}
}, 5000);
</script>
</body>
</html>
`))
