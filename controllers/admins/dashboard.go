package admins

import (
	"net/http"
	"sort"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type RouteTiming struct {
	Route     string  `json:"route"`
	AverageMs float64 `json:"average_ms"`
}

type DashboardStats struct {
	*services.PlatformStats
	SlowestRoutes []RouteTiming `json:"slowest_routes"`
}

// GET /v1/admin/dashboard
func GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.ComputePlatformStats(database.DB, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	timings := make([]RouteTiming, 0)
	for route, avg := range middleware.RouteTimings() {
		timings = append(timings, RouteTiming{Route: route, AverageMs: float64(avg.Microseconds()) / 1000})
	}
	sort.Slice(timings, func(i, j int) bool { return timings[i].AverageMs > timings[j].AverageMs })
	if len(timings) > 10 {
		timings = timings[:10]
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    DashboardStats{PlatformStats: stats, SlowestRoutes: timings},
	})
}
