package web

import "embed"

// Admin содержит статические файлы админки
//
//go:embed admin/dashboard.html
var Admin embed.FS

const DashboardPath = "admin/dashboard.html"
