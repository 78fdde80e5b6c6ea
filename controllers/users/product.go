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

type ProductRequest struct {
	Name     *string          `json:"name" validate:"omitempty,max=200"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock"`
	ImageURL *string          `json:"image_url" validate:"omitempty,max=500"`
}

func (req ProductRequest) input() services.ProductInput {
	return services.ProductInput{Name: req.Name, Price: req.Price, Stock: req.Stock, ImageURL: req.ImageURL}
}

type SaleRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity"`
}

// GET /v1/products?search=
func ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	products, err := services.ListProducts(database.DB, uid, r.URL.Query().Get("search"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: products})
}

// POST /v1/products
func CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	p, err := services.CreateProduct(database.DB, uid, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Product created", Data: p})
}

// GET /v1/products/{id}
func GetProductHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	p, err := services.LoadOwnProduct(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: p})
}

// PUT /v1/products/{id}
func UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	p, err := services.UpdateProduct(database.DB, id, uid, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Product updated", Data: p})
}

// DELETE /v1/products/{id}
func DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.DeleteProduct(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Product deleted"})
}

// POST /v1/sales
func RecordSaleHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req SaleRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	sale, err := services.RecordSale(database.DB, uid, req.ProductID, req.Quantity, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Sale recorded", Data: sale})
}

// GET /v1/sales/stats?period=day|week|month|quarter|6months|year
func SalesStatsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	stats, err := services.ComputeSalesStats(database.DB, uid, r.URL.Query().Get("period"), time.Now(), config.Get().Location)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: stats})
}

// GET /v1/sales/recent?limit=
func RecentSalesHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	sales, err := services.RecentSales(database.DB, uid, utils.QueryInt(r, "limit", 20))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: sales})
}
