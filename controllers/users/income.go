package users

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"github.com/shopspring/decimal"
)

type AddIncomeRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Name   string          `json:"name" validate:"required,max=200"`
	Source string          `json:"source" validate:"oneof=manual sale"`
	Noted  string          `json:"noted"`
}

// GET /v1/income?range=week|month|year
func IncomeStatsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	stats, err := services.ComputeIncomeStats(database.DB, uid, r.URL.Query().Get("range"), time.Now(), config.Get().Location)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: stats})
}

// GET /v1/income/entries?page=&per_page=
func ListIncomeEntriesHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	page := utils.QueryInt(r, "page", 1)
	perPage := utils.QueryInt(r, "per_page", 20)
	rows, total, err := services.ListIncomeEntries(database.DB, uid, page, perPage)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"entries": rows,
			"total":   total,
			"page":    page,
		},
	})
}

// POST /v1/income
func AddIncomeHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req AddIncomeRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	row, err := services.AddIncome(database.DB, uid, req.Amount, req.Name, req.Source, req.Noted)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Income recorded", Data: row})
}

// GET /v1/income/by-task/{id}
func IncomeByTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	inc, err := services.IncomeByTask(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: inc})
}
