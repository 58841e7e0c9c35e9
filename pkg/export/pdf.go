package export

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"

	"github.com/kilianp07/dutyplan/core/clock"
	"github.com/kilianp07/dutyplan/core/model"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Event", 40}, {"Trip", 14}, {"Leg", 12}, {"From", 38}, {"To", 38}, {"Start", 22}, {"End", 22},
}

// WritePDF renders one duty card per duty, a page per shift.
func WritePDF(w io.Writer, title string, res model.ScheduleResult) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetAutoPageBreak(true, 15)

	shifts := SortedKeys(res.Schedules)
	if len(shifts) == 0 {
		pdf.AddPage()
		pdfTitle(pdf, title)
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, "No duties scheduled.")
		pdf.Ln(8)
	}
	for _, shift := range shifts {
		pdf.AddPage()
		pdfTitle(pdf, fmt.Sprintf("%s - Shift %s", title, shift))
		duties := res.Schedules[shift]
		for _, duty := range SortedKeys(duties) {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.Cell(0, 8, duty)
			pdf.Ln(9)
			pdf.SetFont("Helvetica", "B", 9)
			for _, c := range pdfColumns {
				pdf.CellFormat(c.width, 6, c.title, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetFont("Helvetica", "", 9)
			for _, ev := range duties[duty] {
				for _, r := range eventRows(shift, duty, ev) {
					pdfRow(pdf, r)
				}
			}
			pdf.Ln(4)
		}
	}
	if len(res.Warnings) > 0 {
		pdf.AddPage()
		pdfTitle(pdf, "Warnings")
		pdf.SetFont("Helvetica", "", 10)
		for _, wmsg := range res.Warnings {
			pdf.MultiCell(0, 6, "- "+wmsg, "", "", false)
		}
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func pdfTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, s)
	pdf.Ln(12)
}

func pdfRow(pdf *gofpdf.Fpdf, r Row) {
	cells := []string{string(r.Event), "", "", r.From, r.To, clock.Format(r.Start), ""}
	if r.Trip > 0 {
		cells[1] = fmt.Sprint(r.Trip)
		cells[2] = fmt.Sprint(r.Leg)
	}
	if r.HasRange {
		cells[6] = clock.Format(r.End)
	}
	for i, c := range pdfColumns {
		pdf.CellFormat(c.width, 6, cells[i], "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}
