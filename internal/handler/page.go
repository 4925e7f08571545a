package handler

import (
	"html/template"
	"net/http"
	"strings"

	"visitstats/internal/domain"
	"visitstats/pkg/logger"
)

var statsPage = template.Must(template.New("stats").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Visit statistics</title>
</head>
<body>
<h1>Visit statistics for {{.Date.Format "2006-01-02"}}</h1>
<table>
<thead><tr><th>Scope</th><th>Total</th><th>Unique</th></tr></thead>
<tbody>
<tr><td>Day</td><td>{{.DayTotal}}</td><td>{{.DayUnique}}</td></tr>
<tr><td>Month</td><td>{{.MonthTotal}}</td><td>{{.MonthUnique}}</td></tr>
<tr><td>Year</td><td>{{.YearTotal}}</td><td>{{.YearUnique}}</td></tr>
<tr><td>All time</td><td>{{.Total}}</td><td>{{.TotalUnique}}</td></tr>
</tbody>
</table>
</body>
</html>
`))

// wantsHTML reports whether the client prefers a page over JSON
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeStatsPage(w http.ResponseWriter, log *logger.Logger, stats domain.ScopeStats) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := statsPage.Execute(w, stats); err != nil {
		log.WithError(err).Error("Failed to render stats page")
	}
}
