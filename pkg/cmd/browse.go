package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/mbhatt/pageweight/pkg/db"
	"github.com/mbhatt/pageweight/pkg/log"
	"github.com/mbhatt/pageweight/pkg/printer"
	"github.com/mbhatt/pageweight/pkg/sink"
	"github.com/rivo/tview"
)

var (
	tBlack = tcell.NewRGBColor(0, 0, 0)
	tGreen = tcell.NewRGBColor(0, 154, 23) //nolint:gomnd
)

type browser struct {
	app             *tview.Application
	metricsTextArea *tview.TextView
	runListView     *tview.List
	runs            []db.Run
	store           *db.Store
	pages           *tview.Pages
}

func (b *browser) Run() error {
	return b.app.Run()
}

func (b *browser) selectedRunMetrics() (db.Run, []sink.Metric, error) {
	if len(b.runs) == 0 {
		return db.Run{}, nil, fmt.Errorf("no runs recorded yet")
	}
	i := b.runListView.GetCurrentItem()
	run := b.runs[i]
	stored, err := b.store.MetricsForRun(context.Background(), run.ID)
	if err != nil {
		return db.Run{}, nil, fmt.Errorf("load metrics for run %d: %v",
			run.ID, err)
	}
	metrics := make([]sink.Metric, 0, len(stored))
	for _, m := range stored {
		metrics = append(metrics, sink.Metric{
			Name:  m.Name,
			Unit:  m.Unit,
			Value: m.Value,
		})
	}
	return run, metrics, nil
}

func (b *browser) listHandler() {
	textArea := b.metricsTextArea
	textArea.Clear()
	textArea.SetDynamicColors(true)

	run, metrics, err := b.selectedRunMetrics()
	if err != nil {
		fprintf(textArea, "%v\n", err)
		return
	}

	fprintf(textArea, "[teal]run[white]: #%d  %s\n\n", run.ID,
		time.Unix(run.CreatedAt, 0).Format("2006-01-02 15:04:05"))

	p := printer.NewPrinter(printer.Opts{
		Writer: textArea,
		Mode:   printer.ModeBrowser,
	})
	if err := p.Print(run.TraceFile, metrics); err != nil {
		fprintf(textArea, "render metrics: %v\n", err)
	}
}

func (b *browser) keyHandler(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyRune {
		r := event.Rune()
		if r == 'q' {
			b.app.Stop()
		}
		if r == 'c' {
			b.copyModal()
		}
	}
	return event
}

func (b *browser) copyModal() {
	const copiedModalPageName = "copied-modal"

	modal := newModal()
	_, metrics, err := b.selectedRunMetrics()
	if err == nil {
		var js []byte
		js, err = json.MarshalIndent(metrics, "", "  ")
		if err == nil {
			err = clipboard.WriteAll(string(js))
		}
	}
	if err != nil {
		modal.SetText(fmt.Sprintf("Failed to copy metrics: %v", err))
	} else {
		modal.SetText("Copied run metrics to clipboard.")
	}
	modal.AddButtons([]string{"back"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		b.pages.RemovePage(copiedModalPageName)
	})
	b.pages.AddPage(copiedModalPageName, modal, true, true)
}

func newModal() *tview.Modal {
	modal := tview.NewModal()
	modal.SetBackgroundColor(tGreen)
	return modal
}

func (b *browser) setupMainPage() {
	sidebarFrame := tview.NewFrame(b.runListView)
	sidebarFrame.SetBackgroundColor(tBlack)
	sidebarFrame.AddText("Runs", true, tview.AlignCenter, tcell.ColorAntiqueWhite)
	sidebarFrame.SetBorders(0, 0, 0, 0, 0, 0)

	mainFlexbox := tview.NewFlex()
	mainFlexbox.SetBackgroundColor(tBlack)
	mainFlexbox.AddItem(sidebarFrame, 0, 1, true).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(b.metricsTextArea, 0, 4, false), 0, 4, false) //nolint:gomnd

	mainFlexbox.SetInputCapture(b.keyHandler)

	mainFrame := tview.NewFrame(mainFlexbox)
	mainFrame.AddText("[::b]pageweight browser[::-]", true, tview.AlignCenter,
		tcell.ColorWhite).
		SetBorders(0, 0, 0, 0, 0, 0).
		AddText("[c[] Copy metrics [q[] Quit", false, tview.AlignCenter, tcell.ColorWhite)

	mainFrame.SetTitle("pageweight browser").
		SetBorder(false).
		SetBorderPadding(0, 0, 0, 0).
		SetBackgroundColor(tBlack)

	b.pages.AddPage("main-page", mainFrame, true, true)
}

func (b *browser) setupMetricsTextArea() {
	b.metricsTextArea = tview.NewTextView()
	b.metricsTextArea.
		SetBorderPadding(1, 1, 1, 1).
		SetBorder(true).
		SetBackgroundColor(tBlack)
}

func (b *browser) setupApp() {
	b.app = tview.NewApplication().
		SetRoot(b.pages, true).
		EnableMouse(true)
}

func (b *browser) setupPages() {
	b.pages = tview.NewPages()
}

func (b *browser) setupRunsList() {
	b.runListView = tview.NewList()
	b.runListView.
		SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
			b.listHandler()
		}).
		SetFocusFunc(func() {
			b.listHandler()
		})
	b.runListView.ShowSecondaryText(false).
		SetBorder(false).
		SetBackgroundColor(tBlack)
	b.refreshListView()
}

func (b *browser) refreshListView() {
	b.runListView.Clear()
	for i := 0; i < len(b.runs); i++ {
		run := b.runs[i]
		title := fmt.Sprintf("[green]#%d[-] %s %s", run.ID,
			time.Unix(run.CreatedAt, 0).Format("2006-01-02 15:04"),
			run.TraceFile)
		b.runListView.AddItem(title, "", 0, func() {
		})
	}
}

func newBrowser(store *db.Store) (*browser, error) {
	runs, err := store.ListRuns(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list runs: %v", err)
	}

	b := &browser{
		runs:  runs,
		store: store,
	}

	b.setupMetricsTextArea()
	b.setupRunsList()
	b.setupPages()
	b.setupApp()
	b.setupMainPage()

	return b, nil
}

func executeBrowse() error {
	store, err := db.NewStore(db.StoreOpts{Logger: log.Logger})
	if err != nil {
		return fmt.Errorf("set up DB: %v", err)
	}
	defer func() {
		err := store.Close()
		if err != nil {
			log.Logger.Sugar().Errorf("failed to close store: %v", err)
		}
	}()
	b, err := newBrowser(store)
	if err != nil {
		return fmt.Errorf("set up browser :%v", err)
	}

	if err := b.Run(); err != nil {
		return fmt.Errorf("run browser: %v", err)
	}
	return nil
}

func fprintf(w io.Writer, format string, a ...any) {
	_, err := fmt.Fprintf(w, format, a...)
	if err != nil {
		panic(fmt.Sprintf("fmt.Fprintf failed: %v", err))
	}
}
