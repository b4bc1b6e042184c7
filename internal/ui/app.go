package ui

import (
	"context"
	"fmt"
	"log"

	"LocalBoard/internal/board"
	"LocalBoard/internal/export"
	"LocalBoard/internal/net"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// RunApp opens the whiteboard window and blocks until it is closed.
// shareLink is shown to the host; relayAddr enables snapshot upload.
func RunApp(b *board.Board, shareLink, relayAddr string) {
	myApp := app.New()
	myWindow := myApp.NewWindow("Local Whiteboard")
	w, h := b.Size()
	myWindow.Resize(fyne.NewSize(float32(w), float32(h)))

	boardWidget := NewBoardWidget(b)
	b.OnConnState = func(s net.ConnState) {
		boardWidget.SetStatus(fmt.Sprintf("Sync %s", s))
	}

	save := func(a export.Artifact, err error) {
		if err != nil {
			dialog.ShowError(err, myWindow)
			return
		}
		saveArtifact(myWindow, a)
	}

	act := Actions{
		Snapshot:  func() { save(b.Snapshot()) },
		ExportPDF: func() { save(b.ExportPDF()) },
		ToggleRecording: func() bool {
			if b.StartRecording() {
				boardWidget.SetStatus("Recording...")
				return true
			}
			a, ok, err := b.StopRecording()
			if ok {
				boardWidget.SetStatus("Ready")
				save(a, err)
			}
			return false
		},
		ToggleFullscreen: func() {
			on := !myWindow.FullScreen()
			myWindow.SetFullScreen(on)
			size := boardWidget.Size()
			if err := b.SetFullscreen(on, int(size.Width), int(size.Height)); err != nil {
				log.Printf("[UI] Fullscreen: %v", err)
			}
		},
	}
	if relayAddr != "" {
		act.Upload = func() {
			a, err := b.Snapshot()
			if err != nil {
				dialog.ShowError(err, myWindow)
				return
			}
			go func() {
				name, err := net.UploadSnapshot(context.Background(), nil, relayAddr, a)
				if err != nil {
					fyne.Do(func() { dialog.ShowError(err, myWindow) })
					return
				}
				boardWidget.SetStatus("Uploaded " + name)
			}()
		}
	}

	toolbar := NewToolbar(b, act)
	var top fyne.CanvasObject = toolbar
	if shareLink != "" {
		link := widget.NewEntry()
		link.SetText(shareLink)
		top = container.NewVBox(toolbar, container.NewBorder(nil, nil, widget.NewLabel("Share:"), nil, link))
	}

	content := container.NewBorder(top, boardWidget.statusBar, nil, nil, boardWidget)
	myWindow.SetContent(content)
	myWindow.SetOnClosed(func() {
		if _, ok, _ := b.StopRecording(); ok {
			log.Printf("[UI] Recording discarded on close")
		}
	})
	myWindow.ShowAndRun()
}

func saveArtifact(win fyne.Window, a export.Artifact) {
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if writer == nil {
			return
		}
		defer func() {
			if err := writer.Close(); err != nil {
				log.Printf("[UI] Error closing writer: %v", err)
			}
		}()
		if _, err := a.WriteTo(writer); err != nil {
			dialog.ShowError(err, win)
			return
		}
		log.Printf("[UI] Saved %s to %s", a.Name, writer.URI())
	}, win)
	d.SetFileName(a.Name)
	d.Show()
}
