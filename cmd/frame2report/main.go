package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/frame2report/internal/annotate"
	"github.com/ivlev/frame2report/internal/config"
	"github.com/ivlev/frame2report/internal/engine"
	"github.com/ivlev/frame2report/internal/report"
	"github.com/ivlev/frame2report/internal/video"
)

var errQuit = errors.New("quit")

const help = `Commands:
  open [path]            open a video (default: newest in the video dir)
  play | pause | toggle  playback
  fwd | back             skip by the configured step
  seek <seconds>         jump to a position
  slide <0-1000>         move the position slider
  note <text>            log the current frame with a note
  mark                   capture the current frame for annotation
  press|drag|release x y arrow gesture on the annotation
  label <text>           label the released arrow (empty for none)
  cancel-label           discard the released arrow
  targets                list high-contrast regions to point at
  reset                  wipe all marks of the annotation
  preview [path]         write the annotation preview as PNG
  save | close           finish the annotation
  list                   show findings
  delete <n> [n...]      delete findings by number
  report [path]          export findings
  status                 show playback position
  quit`

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	configPtr := flag.String("config", "frame2report.yaml", "Path to the YAML configuration")
	videoPtr := flag.String("video", "", "Video to open at start (default: newest file in the video dir)")
	templatePtr := flag.String("template", "", "Report template (YAML)")
	workDirPtr := flag.String("workdir", "", "Directory for captured and annotated frames")
	logFilePtr := flag.String("log-file", "", "Write logs to this file instead of stderr")
	initTemplatePtr := flag.String("init-template", "", "Write a starter report template to this path and exit")
	flag.Parse()

	if *initTemplatePtr != "" {
		if err := report.WriteTemplate(report.DefaultTemplate(), *initTemplatePtr); err != nil {
			log.Printf("[-] Template write error: %v", err)
			return 1
		}
		fmt.Printf("[+] Template written: %s\n", *initTemplatePtr)
		return 0
	}

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Printf("[-] %v", err)
		return 1
	}
	if *templatePtr != "" {
		cfg.TemplatePath = *templatePtr
	}
	if *workDirPtr != "" {
		cfg.WorkDir = *workDirPtr
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[-] %v", err)
		return 1
	}

	var logOut io.Writer = os.Stderr
	if *logFilePtr != "" {
		f, err := os.OpenFile(*logFilePtr, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[-] Log file error: %v", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger, err := config.NewLogger(cfg, logOut)
	if err != nil {
		log.Printf("[-] %v", err)
		return 1
	}

	ws, err := engine.NewWorkspace(cfg,
		video.NewClockPlayer(cfg.FFprobe),
		&video.FFmpegCapturer{FFmpeg: cfg.FFmpeg},
		&report.PDFWriter{},
		logger)
	if err != nil {
		log.Printf("[-] Workspace error: %v", err)
		return 1
	}
	defer ws.Close()

	ws.Editor().OnStateChange(func(from, to annotate.State) {
		logger.WithField("from", from.String()).WithField("to", to.String()).Debug("annotation state")
	})

	if path, err := ws.OpenVideo(*videoPtr); err == nil {
		fmt.Printf("[*] Video: %s (%s)\n", path, ws.Status().Clock)
	} else if *videoPtr != "" {
		log.Printf("[!] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	ticks := make(chan time.Time, 1)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.RunRefresher(ctx, ticks)
	})
	g.Go(func() error {
		return loop(ctx, ws, lines, ticks)
	})

	fmt.Println("--- [FRAME2REPORT] ---")
	fmt.Println(`[*] Type "help" for commands`)
	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		log.Printf("[-] %v", err)
		return 1
	}
	fmt.Println("[*] Bye")
	return 0
}

// readLines feeds stdin into lines and closes it at EOF. It blocks in Scan,
// so it is left to die with the process.
func readLines(r io.Reader, lines chan<- string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- sc.Text()
	}
	close(lines)
}

func loop(ctx context.Context, ws *engine.Workspace, lines <-chan string, ticks <-chan time.Time) error {
	wasPlaying := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			s := ws.Refresh()
			if wasPlaying && !s.Playing && s.Length > 0 && s.Position >= s.Length {
				fmt.Printf("[*] End of video (%s)\n", s.Clock)
			}
			wasPlaying = s.Playing
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := dispatch(ctx, ws, line); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				fmt.Printf("[!] %v\n", err)
			}
			wasPlaying = ws.Refresh().Playing
		}
	}
}

func dispatch(ctx context.Context, ws *engine.Workspace, line string) error {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd = strings.ToLower(cmd)
	rest = strings.TrimSpace(rest)
	ed := ws.Editor()

	switch cmd {
	case "":
		return nil
	case "help", "?":
		fmt.Println(help)
	case "quit", "exit":
		return errQuit
	case "open":
		path, err := ws.OpenVideo(rest)
		if err != nil {
			return err
		}
		fmt.Printf("[*] Video: %s (%s)\n", path, ws.Status().Clock)
	case "play":
		return ws.Play()
	case "pause":
		return ws.Pause()
	case "toggle":
		return ws.TogglePlay()
	case "fwd":
		if err := ws.SkipForward(); err != nil {
			return err
		}
		printStatus(ws.Status())
	case "back":
		if err := ws.SkipBackward(); err != nil {
			return err
		}
		printStatus(ws.Status())
	case "seek":
		sec, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return fmt.Errorf("seek: %v", err)
		}
		return ws.Seek(sec)
	case "slide":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("slide: %v", err)
		}
		ws.SliderPress()
		return ws.SliderRelease(v)
	case "note":
		n, err := ws.AddTextEvent(ctx, rest)
		if err != nil {
			return err
		}
		fmt.Printf("[+] %s\n", ws.Log().Lines()[n-1])
	case "mark":
		if err := ws.BeginPointerEvent(ctx); err != nil {
			return err
		}
		size := ed.Size()
		fmt.Printf("[*] Annotating frame at %s, canvas %dx%d\n", ws.Refresh().Clock, size.X, size.Y)
		return printTargets(ws)
	case "targets":
		return printTargets(ws)
	case "press", "drag", "release":
		p, err := parsePoint(rest)
		if err != nil {
			return err
		}
		switch cmd {
		case "press":
			return ed.Press(p)
		case "drag":
			return ed.Drag(p)
		default:
			if err := ed.Release(p); err != nil {
				return err
			}
			fmt.Println(`[*] Enter "label <text>" or "cancel-label"`)
		}
	case "label":
		return ed.CommitLabel(rest)
	case "cancel-label":
		return ed.CancelLabel()
	case "reset":
		return ed.Reset()
	case "preview":
		return writePreview(ed, rest, ws.Config.WorkDir)
	case "save":
		n, err := ws.FinishPointerEvent()
		if err != nil {
			return err
		}
		fmt.Printf("[+] %s\n", ws.Log().Lines()[n-1])
	case "close":
		return ws.CloseAnnotation()
	case "list":
		lines := ws.Log().Lines()
		if len(lines) == 0 {
			fmt.Println("[*] No findings yet")
		}
		for _, l := range lines {
			fmt.Println("   ", l)
		}
	case "delete":
		var nums []int
		for _, f := range strings.Fields(rest) {
			n, err := strconv.Atoi(f)
			if err != nil {
				return fmt.Errorf("delete: %v", err)
			}
			nums = append(nums, n)
		}
		if err := ws.DeleteEvents(nums...); err != nil {
			return err
		}
		fmt.Printf("[*] %d finding(s) left\n", ws.Log().Len())
	case "report":
		dest := rest
		if dest == "" {
			dest = filepath.Join(ws.Config.ReportDir, fmt.Sprintf("report_%s.pdf", time.Now().Format("2006-01-02_15-04-05")))
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		res, err := ws.CreateReport(dest)
		if err != nil {
			return err
		}
		if res.Placeholders > 0 {
			fmt.Printf("[!] %d image(s) could not be added\n", res.Placeholders)
		}
		fmt.Printf("[+++] Report written: %s (%d findings, %d videos)\n", res.Path, res.Findings, res.Groups)
	case "status":
		printStatus(ws.Refresh())
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func printTargets(ws *engine.Workspace) error {
	regions, err := ws.Targets(5)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		fmt.Println("[!] The frame looks blank")
		return nil
	}
	for i, r := range regions {
		c := r.Center()
		fmt.Printf("    %d. %v center %d %d\n", i+1, r.Rect, c.X, c.Y)
	}
	return nil
}

func parsePoint(s string) (image.Point, error) {
	f := strings.Fields(s)
	if len(f) != 2 {
		return image.Point{}, fmt.Errorf("expected: x y")
	}
	x, err := strconv.Atoi(f[0])
	if err != nil {
		return image.Point{}, err
	}
	y, err := strconv.Atoi(f[1])
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(x, y), nil
}

func writePreview(ed *annotate.Editor, path, dir string) error {
	img := ed.Preview()
	if img == nil {
		return fmt.Errorf("no annotation open")
	}
	if path == "" {
		path = filepath.Join(dir, "preview.png")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	fmt.Printf("[*] Preview: %s\n", path)
	return nil
}

func printStatus(s engine.Status) {
	state := "paused"
	if s.Playing {
		state = "playing"
	}
	if s.Video == "" {
		fmt.Println("[*] No video open")
		return
	}
	fmt.Printf("[*] %s  %s  [%4d/%d]  %s  findings: %d  editor: %s\n",
		filepath.Base(s.Video), s.Clock, s.Slider, engine.SliderMax, state, s.Findings, s.Editor)
}
