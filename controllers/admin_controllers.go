package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/realtime"
	"github.com/tablebook/tablebook/utils"
)

type AdminController struct {
	DB *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db}
}

// GetDashboardStats aggregates the counters the admin dashboard renders.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	today := time.Now().Format("2006-01-02")

	var stats struct {
		TotalReservations int64 `json:"total_reservations"`
		TodayReservations int64 `json:"today_reservations"`
		ReservationStats  struct {
			Pending   int64 `json:"pending"`
			Confirmed int64 `json:"confirmed"`
			Completed int64 `json:"completed"`
			Cancelled int64 `json:"cancelled"`
			NoShow    int64 `json:"no_show"`
		} `json:"reservation_stats"`
		TableStats struct {
			Available    int64 `json:"available"`
			Reserved     int64 `json:"reserved"`
			Occupied     int64 `json:"occupied"`
			OutOfService int64 `json:"out_of_service"`
		} `json:"table_stats"`
		DepositStats struct {
			Pending      int64   `json:"pending"`
			Settled      int64   `json:"settled"`
			SettledTotal float64 `json:"settled_total"`
		} `json:"deposit_stats"`
		ConnectedDashboards int `json:"connected_dashboards"`
	}

	ac.DB.Model(&models.Reservation{}).Count(&stats.TotalReservations)
	ac.DB.Model(&models.Reservation{}).Where("date = ?", today).Count(&stats.TodayReservations)

	ac.DB.Model(&models.Reservation{}).Where("status = ?", models.ReservationPending).Count(&stats.ReservationStats.Pending)
	ac.DB.Model(&models.Reservation{}).Where("status = ?", models.ReservationConfirmed).Count(&stats.ReservationStats.Confirmed)
	ac.DB.Model(&models.Reservation{}).Where("status = ?", models.ReservationCompleted).Count(&stats.ReservationStats.Completed)
	ac.DB.Model(&models.Reservation{}).Where("status = ?", models.ReservationCancelled).Count(&stats.ReservationStats.Cancelled)
	ac.DB.Model(&models.Reservation{}).Where("status = ?", models.ReservationNoShow).Count(&stats.ReservationStats.NoShow)

	ac.DB.Model(&models.Table{}).Where("status = ?", models.TableAvailable).Count(&stats.TableStats.Available)
	ac.DB.Model(&models.Table{}).Where("status = ?", models.TableReserved).Count(&stats.TableStats.Reserved)
	ac.DB.Model(&models.Table{}).Where("status = ?", models.TableOccupied).Count(&stats.TableStats.Occupied)
	ac.DB.Model(&models.Table{}).Where("status = ?", models.TableOutOfService).Count(&stats.TableStats.OutOfService)

	ac.DB.Model(&models.Deposit{}).Where("status = ?", models.DepositPending).Count(&stats.DepositStats.Pending)
	ac.DB.Model(&models.Deposit{}).Where("status = ?", models.DepositSettled).Count(&stats.DepositStats.Settled)
	ac.DB.Model(&models.Deposit{}).Where("status = ?", models.DepositSettled).
		Select("COALESCE(SUM(amount), 0)").Row().Scan(&stats.DepositStats.SettledTotal)

	stats.ConnectedDashboards = realtime.ClientCount()

	realtime.BroadcastDashboardUpdate(stats)
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

// GetReservationChart renders a PNG bar chart of reservations per day over
// the trailing two weeks.
func (ac *AdminController) GetReservationChart(c *gin.Context) {
	const days = 14
	bars := make([]chart.Value, 0, days)

	for i := days - 1; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i)
		date := day.Format("2006-01-02")

		var count int64
		q := ac.DB.Model(&models.Reservation{}).Where("date = ?", date)
		if rid := c.Query("restaurant_id"); rid != "" {
			q = q.Where("restaurant_id = ?", rid)
		}
		q.Count(&count)

		bars = append(bars, chart.Value{
			Value: float64(count),
			Label: day.Format("01-02"),
		})
	}

	graph := chart.BarChart{
		Title:    "Reservations per day",
		Height:   400,
		BarWidth: 30,
		Bars:     bars,
	}

	c.Header("Content-Type", "image/png")
	if err := graph.Render(chart.PNG, c.Writer); err != nil {
		utils.ErrorLogger.Printf("Error rendering reservation chart: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// ExportDailyPDF produces the printable day sheet for one restaurant.
func (ac *AdminController) ExportDailyPDF(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	restaurantID := c.Query("restaurant_id")

	q := ac.DB.Preload("Customer").Preload("Table").Where("date = ?", date)
	if restaurantID != "" {
		q = q.Where("restaurant_id = ?", restaurantID)
	}

	var reservations []models.Reservation
	if err := q.Order("time").Find(&reservations).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Daily reservations - "+date)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "B", 10)
	headers := []struct {
		label string
		width float64
	}{
		{"Number", 40}, {"Time", 16}, {"Guests", 16}, {"Table", 20}, {"Status", 26}, {"Customer", 50},
	}
	for _, h := range headers {
		pdf.CellFormat(h.width, 8, h.label, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	var totalGuests int
	for _, res := range reservations {
		tableNo := "-"
		if res.Table != nil {
			tableNo = res.Table.TableNumber
		}
		pdf.CellFormat(40, 8, res.ReservationNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(16, 8, res.Time, "1", 0, "L", false, 0, "")
		pdf.CellFormat(16, 8, fmt.Sprintf("%d", res.GuestCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 8, tableNo, "1", 0, "L", false, 0, "")
		pdf.CellFormat(26, 8, string(res.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, res.Customer.Name, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
		totalGuests += res.GuestCount
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 8, fmt.Sprintf("%d reservations, %d guests expected", len(reservations), totalGuests))

	var settled float64
	ac.DB.Model(&models.Deposit{}).
		Joins("JOIN reservations ON reservations.id = deposits.reservation_id").
		Where("deposits.status = ? AND reservations.date = ?", models.DepositSettled, date).
		Select("COALESCE(SUM(deposits.amount), 0)").Row().Scan(&settled)
	if settled > 0 {
		pdf.Ln(8)
		pdf.Cell(0, 8, "Deposits settled: "+utils.FormatCurrency(settled))
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reservations-%s.pdf", date))
	if err := pdf.Output(c.Writer); err != nil {
		utils.ErrorLogger.Printf("Error writing daily PDF: %v", err)
	}
}
