// Copyright (c) 2024-2026 IntervuAI
//
// Interview CLI - runs a full mock interview session from the terminal.
// Audio is read from a LINEAR16 16kHz mono stream (a pipe or a file) and
// webcam frames from a directory of JPEGs, so the pipeline can be exercised
// without real capture devices.

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"google.golang.org/genai"

	interview_api "github.com/intervuai/api/interview-api/api"
	"github.com/intervuai/api/interview-api/config"
	internal_evaluate "github.com/intervuai/api/interview-api/internal/evaluate"
	internal_proctor "github.com/intervuai/api/interview-api/internal/proctor"
	internal_sensor "github.com/intervuai/api/interview-api/internal/sensor"
	sensor_deepgram "github.com/intervuai/api/interview-api/internal/sensor/deepgram"
	sensor_google "github.com/intervuai/api/interview-api/internal/sensor/google"
	internal_session "github.com/intervuai/api/interview-api/internal/session"
	"github.com/intervuai/pkg/commons"
	"github.com/intervuai/pkg/utils"
)

func main() {
	role := flag.String("role", "Backend Engineer", "interview role")
	difficulty := flag.String("difficulty", "medium", "easy, medium or hard")
	audioPath := flag.String("audio", "", "LINEAR16 16kHz mono audio stream (default stdin)")
	framesDir := flag.String("frames", "", "directory of JPEG webcam frames")
	resume := flag.Bool("resume", false, "resume the saved draft instead of starting fresh")
	flag.Parse()

	v, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config init: %v", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	loggerOpts := []commons.LoggerOption{commons.WithLevel(cfg.LogLevel)}
	if cfg.LogFile != "" {
		loggerOpts = append(loggerOpts, commons.WithRotatingFile(cfg.LogFile))
	}
	logger, err := commons.NewApplicationLogger(loggerOpts...)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := internal_session.Open(cfg.DatabaseDSN, logger)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("genai client: %v", err)
	}

	var audio io.Reader = os.Stdin
	if *audioPath != "" {
		f, err := os.Open(*audioPath)
		if err != nil {
			log.Fatalf("audio: %v", err)
		}
		defer f.Close()
		audio = f
	}

	api := interview_api.NewInterviewApi(cfg, logger, store,
		internal_evaluate.NewService(logger, client, cfg.GeminiModel),
		internal_proctor.NewGeminiJudge(logger, client, cfg.GeminiModel),
		func(ctx context.Context) (*interview_api.Sensors, error) {
			transcriber, err := newTranscriber(ctx, logger, cfg, audio)
			if err != nil {
				return nil, err
			}
			return &interview_api.Sensors{
				Transcriber: transcriber,
				Media:       &frameDirMedia{dir: *framesDir},
			}, nil
		})

	var iv *interview_api.Interview
	if *resume {
		iv, err = api.ResumeInterview(ctx, &terminalDisplay{}, &terminalObserver{})
	} else {
		iv, err = api.StartInterview(ctx, internal_session.Config{
			Role:       *role,
			Difficulty: *difficulty,
		}, &terminalDisplay{}, &terminalObserver{})
	}
	if err != nil {
		log.Fatalf("interview: %v", err)
	}

	runLoop(ctx, iv)
}

func newTranscriber(ctx context.Context, logger commons.Logger, cfg *config.AppConfig, audio io.Reader) (internal_sensor.Transcriber, error) {
	switch cfg.Speech.Provider {
	case "deepgram":
		return sensor_deepgram.NewTranscriber(logger, sensor_deepgram.Config{
			APIKey:   cfg.Speech.DeepgramAPIKey,
			Language: cfg.Speech.Language,
		}, audio)
	default:
		return sensor_google.NewTranscriber(ctx, logger, sensor_google.Config{
			ProjectID: cfg.Speech.GoogleProjectID,
			APIKey:    cfg.Speech.GoogleAPIKey,
			Language:  cfg.Speech.Language,
		}, audio)
	}
}

func runLoop(ctx context.Context, iv *interview_api.Interview) {
	sess := iv.Session()
	fmt.Printf("Interview for %s (%s), %d questions.\n", sess.Config.Role, sess.Config.Difficulty, len(sess.Questions))
	fmt.Println("Commands: start, pause, resume, next, quit (save), abandon (discard)")

	printQuestion(iv)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		var err error
		switch strings.TrimSpace(scanner.Text()) {
		case "start":
			err = iv.StartAnswer(ctx)
		case "pause":
			err = iv.PauseAnswer()
		case "resume":
			err = iv.ResumeAnswer(ctx)
		case "next":
			var done bool
			done, err = iv.NextQuestion(ctx)
			if err == nil && done {
				finish(ctx, iv)
				return
			}
			if err == nil {
				printQuestion(iv)
			}
		case "quit":
			if err := iv.Leave(ctx); err != nil {
				fmt.Printf("leave: %v\n", err)
			}
			fmt.Println("Interview saved. Run with -resume to continue.")
			return
		case "abandon":
			if err := iv.Abandon(ctx); err != nil {
				fmt.Printf("abandon: %v\n", err)
			}
			fmt.Println("Interview discarded.")
			return
		default:
			fmt.Println("unknown command")
			continue
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func printQuestion(iv *interview_api.Interview) {
	sess := iv.Session()
	r := iv.Runner()
	idx := r.Question()
	fmt.Printf("\n[%s] Question %d/%d: %s\n",
		utils.FormatClock(int(r.TotalElapsed().Seconds())),
		idx+1, len(sess.Questions), sess.Questions[idx])
}

func finish(ctx context.Context, iv *interview_api.Interview) {
	fmt.Println("\nEvaluating your interview...")
	result, err := iv.Complete(ctx)
	if err != nil {
		fmt.Printf("evaluation failed: %v\n", err)
		return
	}

	fmt.Printf("\nOverall score: %d/10\n", result.OverallScore)
	for _, c := range result.Criteria {
		fmt.Printf("  %-20s %.1f/%.1f  %s\n", c.Name, c.Score, c.MaxScore, c.Reasoning)
	}
	fmt.Println("\nStrengths:")
	for _, s := range result.Strengths {
		fmt.Printf("  - %s\n", s)
	}
	fmt.Println("Areas to polish:")
	for _, w := range result.Weaknesses {
		fmt.Printf("  - %s\n", w)
	}
	fmt.Println("Improvements:")
	for _, im := range result.Improvements {
		fmt.Printf("  - %s\n", im)
	}
	if result.MalpracticeReport != nil {
		fmt.Printf("\nProctoring report: %s\n%s\n",
			result.MalpracticeReport.Summary, result.MalpracticeReport.ImpactOnScore)
	}
}

// terminalDisplay renders proctoring notices on the console.
type terminalDisplay struct{}

func (terminalDisplay) ShowAlert(message string) { fmt.Printf("\n[ALERT] %s\n> ", message) }
func (terminalDisplay) HideAlert()               {}
func (terminalDisplay) ShowCoaching(message string) {
	fmt.Printf("\n[coach] %s\n> ", message)
}
func (terminalDisplay) HideCoaching() {}

// terminalObserver shows the live transcript as it arrives.
type terminalObserver struct{}

func (terminalObserver) TranscriptPreview(text string) { fmt.Printf("\r%s", text) }
func (terminalObserver) Status(message string)         { fmt.Printf("\n[status] %s\n> ", message) }

// frameDirMedia serves webcam frames from a directory of JPEGs, cycling
// through them in name order. Loudness is a quiet constant; pipe real RMS
// values in here when testing the noise path.
type frameDirMedia struct {
	dir string

	mu     sync.Mutex
	frames [][]byte
	next   int
}

func (m *frameDirMedia) Open(context.Context) error {
	if m.dir == "" {
		return nil
	}
	paths, err := filepath.Glob(filepath.Join(m.dir, "*.jpg"))
	if err != nil {
		return err
	}
	sort.Strings(paths)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		m.frames = append(m.frames, data)
	}
	return nil
}

func (m *frameDirMedia) Frame(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil, fmt.Errorf("no webcam frames available")
	}
	frame := m.frames[m.next%len(m.frames)]
	m.next++
	return frame, nil
}

func (m *frameDirMedia) Loudness(context.Context) (float64, error) {
	return 40, nil
}

func (m *frameDirMedia) Close() error {
	return nil
}
