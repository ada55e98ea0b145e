// scanreport.go
//go:build scanreport

package main

import (
	"flag"
	"fmt"
	"html"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ReportConfig controls scanreport's output: which scan-session database
// to read, how many of the most recent sessions to include, the output
// format, and where to write it (empty path means stdout, valid only for
// console and html).
type ReportConfig struct {
	DBPath string
	Limit  int
	Format string
	Out    string
}

func main() {
	os.Exit(runReport())
}

func runReport() int {
	var rc ReportConfig
	flag.StringVar(&rc.DBPath, "db", "./medialibchecker.db", "path to the scan-session database")
	flag.IntVar(&rc.Limit, "limit", 20, "number of most recent sessions to include")
	flag.StringVar(&rc.Format, "format", "console", "output format: console, html, or excel")
	flag.StringVar(&rc.Out, "out", "", "output file path (required for excel, optional for html)")
	flag.Parse()

	db, err := openSessionStore(rc.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening session store: %v\n", err)
		return 1
	}

	sessions, err := recentSessions(db, rc.Limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading sessions: %v\n", err)
		return 1
	}

	switch rc.Format {
	case "console":
		renderConsole(sessions)
	case "html":
		if err := renderHTML(sessions, rc.Out); err != nil {
			fmt.Fprintf(os.Stderr, "rendering html report: %v\n", err)
			return 1
		}
	case "excel":
		if rc.Out == "" {
			fmt.Fprintln(os.Stderr, "-out is required for excel reports")
			return 2
		}
		if err := renderExcel(sessions, rc.Out); err != nil {
			fmt.Fprintf(os.Stderr, "rendering excel report: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q: want console, html, or excel\n", rc.Format)
		return 2
	}
	return 0
}

var reportColumns = []string{"Root", "Started", "Finished", "Directories", "Files", "Bytes", "Hashed", "Dropped", "Cancelled"}

func reportRow(s ScanSession) []string {
	return []string{
		s.RootPath,
		s.StartedAt.Format("2006-01-02 15:04:05"),
		s.FinishedAt.Format("2006-01-02 15:04:05"),
		strconv.Itoa(s.DirectoryCount),
		strconv.Itoa(s.FileCount),
		strconv.FormatInt(s.TotalBytes, 10),
		strconv.Itoa(s.FilesHashed),
		strconv.Itoa(s.FilesDropped),
		strconv.FormatBool(s.Cancelled),
	}
}

func renderConsole(sessions []ScanSession) {
	fmt.Println(joinTab(reportColumns))
	for _, s := range sessions {
		fmt.Println(joinTab(reportRow(s)))
	}
}

func joinTab(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "\t"
		}
		out += f
	}
	return out
}

func renderHTML(sessions []ScanSession, outPath string) error {
	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	fmt.Fprintln(w, "<html><body><table border=\"1\">")
	fmt.Fprint(w, "<tr>")
	for _, col := range reportColumns {
		fmt.Fprintf(w, "<th>%s</th>", htmlEscape(col))
	}
	fmt.Fprintln(w, "</tr>")
	for _, s := range sessions {
		fmt.Fprint(w, "<tr>")
		for _, cell := range reportRow(s) {
			fmt.Fprintf(w, "<td>%s</td>", htmlEscape(cell))
		}
		fmt.Fprintln(w, "</tr>")
	}
	fmt.Fprintln(w, "</table></body></html>")
	return nil
}

func htmlEscape(s string) string {
	return html.EscapeString(s)
}

func renderExcel(sessions []ScanSession, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sessions"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, name := range reportColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, name)
	}
	for row, s := range sessions {
		for col, value := range reportRow(s) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}
	return f.SaveAs(outPath)
}
