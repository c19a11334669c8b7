package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// RenderPDF produces the downloadable management report: a summary page,
// distribution tables with embedded charts, the trend series and the
// per-assignee performance table.
func RenderPDF(data *Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Helpdesk Report", false)
	pdf.SetAutoPageBreak(true, 18)

	writeSummaryPage(pdf, data)
	writeDistributionPage(pdf, data)
	writeTrendPage(pdf, data)
	writePerformancePage(pdf, data)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummaryPage(pdf *fpdf.Fpdf, data *Data) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Helpdesk Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated at "+data.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total tickets: %d", data.TotalTickets), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Average resolution time: %.1f hours (%.1f days, %d resolved)",
		data.AvgResolution.Hours, data.AvgResolution.Days, data.AvgResolution.SampleSize), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeBucketTable(pdf, "Status Distribution", data.StatusDistribution)
	pdf.Ln(4)
	writeBucketTable(pdf, "Priority Distribution", data.PriorityDistribution)
}

func writeDistributionPage(pdf *fpdf.Fpdf, data *Data) {
	pdf.AddPage()
	writeBucketTable(pdf, "Type Distribution", data.TypeDistribution)
	pdf.Ln(4)
	writeBucketTable(pdf, "Tickets by Unit", data.UnitDistribution)
	pdf.Ln(6)

	if png, err := StatusChart(data.StatusDistribution); err == nil {
		embedPNG(pdf, "status-chart", png, 150)
	}
	if png, err := UnitChart(data.UnitDistribution); err == nil {
		embedPNG(pdf, "unit-chart", png, 150)
	}
}

func writeTrendPage(pdf *fpdf.Fpdf, data *Data) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Ticket Trends (last 7 days)", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 238, 245)
	pdf.CellFormat(40, 7, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Weekday", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Created", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Closed", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, point := range data.Trends {
		pdf.CellFormat(40, 7, point.Date, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, point.Weekday, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", point.Created), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", point.Closed), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	if png, err := TrendChart(data.Trends); err == nil {
		embedPNG(pdf, "trend-chart", png, 180)
	}
}

func writePerformancePage(pdf *fpdf.Fpdf, data *Data) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Assignee Performance", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 238, 245)
	pdf.CellFormat(45, 7, "Assignee", "1", 0, "L", true, 0, "")
	pdf.CellFormat(18, 7, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(22, 7, "Resolved", "1", 0, "R", true, 0, "")
	pdf.CellFormat(18, 7, "Closed", "1", 0, "R", true, 0, "")
	pdf.CellFormat(27, 7, "In Progress", "1", 0, "R", true, 0, "")
	pdf.CellFormat(28, 7, "Rate %", "1", 0, "R", true, 0, "")
	pdf.CellFormat(32, 7, "Avg Hours", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range data.Performance {
		pdf.CellFormat(45, 7, row.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(18, 7, fmt.Sprintf("%d", row.Total), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 7, fmt.Sprintf("%d", row.Resolved), "1", 0, "R", false, 0, "")
		pdf.CellFormat(18, 7, fmt.Sprintf("%d", row.Closed), "1", 0, "R", false, 0, "")
		pdf.CellFormat(27, 7, fmt.Sprintf("%d", row.InProgress), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 7, fmt.Sprintf("%.1f", row.ResolutionRate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 7, fmt.Sprintf("%.1f", row.AvgResolutionHours), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Recent Tickets", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(60, 7, "Subject", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Status", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Priority", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Owner", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 7, "Created", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range data.Recent {
		pdf.CellFormat(60, 7, truncate(row.Subject, 34), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, row.Status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, row.Priority, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, truncate(row.OwnerName, 22), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, row.CreatedAt.Format("2006-01-02"), "1", 1, "L", false, 0, "")
	}
}

func writeBucketTable(pdf *fpdf.Fpdf, title string, buckets []Bucket) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 238, 245)
	pdf.CellFormat(80, 7, "Label", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Count", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, bucket := range buckets {
		pdf.CellFormat(80, 7, bucket.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", bucket.Count), "1", 1, "R", false, 0, "")
	}
}

func embedPNG(pdf *fpdf.Fpdf, name string, png []byte, width float64) {
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, (210-width)/2, pdf.GetY(), width, 0, true, opts, 0, "")
	pdf.Ln(4)
}

// truncate shortens s to at most max runes so a multi-byte character is
// never split at the cut point.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
