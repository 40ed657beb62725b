package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mbhatt/pageweight/pkg/sink"
	"github.com/nwidger/jsoncolor"
)

type Printer struct {
	writer io.Writer
	mode   Mode
}

type Mode int

const (
	ModeColorConsole = iota
	ModeBrowser
	ModeNoColor
)

type Opts struct {
	Writer io.Writer
	Mode   Mode
}

func NewPrinter(opts Opts) Printer {
	return Printer{
		writer: opts.Writer,
		mode:   opts.Mode,
	}
}

// Print renders a run report: the trace file, the page-level totals, then
// any per-resource metrics, in emission order.
func (p Printer) Print(traceFile string, metrics []sink.Metric) error {
	titleSprintf := p.colorPrinterFor(white).SprintfFunc()
	_, err := fmt.Fprintf(p.writer, "%s",
		titleSprintf("report: %s\n\n", traceFile))
	if err != nil {
		return err
	}

	for _, m := range metrics {
		if strings.HasPrefix(m.Name, "resource_") {
			continue
		}
		p.printMetric(m)
	}
	for _, m := range metrics {
		if !strings.HasPrefix(m.Name, "resource_") {
			continue
		}
		p.printMetric(m)
	}
	return nil
}

func (p Printer) printMetric(m sink.Metric) {
	nameSprintf := p.colorPrinterFor(cyan).SprintfFunc()
	valueSprintf := p.colorPrinterFor(white).SprintfFunc()
	unitSprintf := p.colorPrinterFor(grey).SprintfFunc()

	res := nameSprintf("%s", m.Name)
	res += valueSprintf(": %s ", formatValue(m))
	res += unitSprintf("%s\n", m.Unit)
	fmt.Fprintf(p.writer, "%s", res)
}

func formatValue(m sink.Metric) string {
	if m.Unit == "percent" {
		return fmt.Sprintf("%.1f", m.Value)
	}
	return fmt.Sprintf("%d", int64(m.Value))
}

// PrintJSON renders the metrics as a colored JSON document.
func (p Printer) PrintJSON(metrics []sink.Metric) error {
	js, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	pretty, err := p.prettyJSON(js)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.writer, string(pretty))
	return err
}

type colorPrinter interface {
	SprintfFunc() func(format string, a ...interface{}) string
}

type noColor struct {
}

func (n noColor) SprintfFunc() func(format string, a ...interface{}) string {
	return fmt.Sprintf
}

type tvColor struct {
	color string
}

func (c tvColor) SprintfFunc() func(format string, a ...interface{}) string {
	return func(format string, a ...interface{}) string {
		return fmt.Sprintf("["+c.color+"]"+format+"[-:-:-]", a...)
	}
}

type colorName int

const (
	white colorName = iota
	cyan
	yellow
	grey
	blue
	green
)

var (
	consoleColors = map[colorName]colorPrinter{}
	browserColors = map[colorName]colorPrinter{}
)

func init() {
	consoleColors[white] = color.New(color.FgWhite)
	browserColors[white] = tvColor{color: "white"}

	consoleColors[cyan] = color.New(color.FgCyan)
	browserColors[cyan] = tvColor{color: "darkcyan"}

	consoleColors[yellow] = color.New(color.FgYellow)
	browserColors[yellow] = tvColor{color: "yellow"}

	consoleColors[grey] = color.New(color.FgBlack, color.Bold)
	browserColors[grey] = tvColor{color: "#656565"}

	consoleColors[blue] = color.New(color.FgBlue)
	browserColors[blue] = tvColor{color: "blue"}

	consoleColors[green] = color.New(color.FgGreen)
	browserColors[green] = tvColor{color: "green"}
}

func (p Printer) colorPrinterFor(name colorName) colorPrinter {
	switch p.mode {
	case ModeColorConsole:
		return consoleColors[name]
	case ModeBrowser:
		return browserColors[name]
	case ModeNoColor:
		return noColor{}
	default:
		panic(fmt.Sprintf("invalid mode: %v", p.mode))
	}
}

func (p Printer) prettyJSON(js []byte) ([]byte, error) {
	formatter := p.formatter()

	if len(js) == 0 {
		return js, nil
	}

	var jsMap interface{}
	if err := json.Unmarshal(js, &jsMap); err != nil {
		return nil, err
	}

	dst, err := jsoncolor.MarshalIndentWithFormatter(jsMap, "", "  ", formatter)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func (p Printer) formatter() *jsoncolor.Formatter {
	f := jsoncolor.NewFormatter()
	whiteP := p.colorPrinterFor(white)
	blueP := p.colorPrinterFor(blue)
	greenP := p.colorPrinterFor(green)
	greyP := p.colorPrinterFor(grey)
	yellowP := p.colorPrinterFor(yellow)

	f.ObjectColor = whiteP
	f.ArrayColor = whiteP
	f.FieldQuoteColor = whiteP
	f.CommaColor = whiteP
	f.StringQuoteColor = whiteP
	f.ColonColor = whiteP
	f.SpaceColor = whiteP

	f.FieldColor = blueP

	f.NullColor = greyP

	f.StringColor = greenP

	f.TrueColor = yellowP
	f.FalseColor = yellowP

	f.NumberColor = blueP
	return f
}
