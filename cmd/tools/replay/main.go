// Command replay runs a recorded landmark log through the full assessment
// pipeline offline and prints the outcome. Useful for tuning classifier
// margins against captured sessions without a camera or model server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gaitworks/posture.report/internal/config"
	"github.com/gaitworks/posture.report/internal/pose"
	"github.com/gaitworks/posture.report/internal/session"
	"github.com/gaitworks/posture.report/internal/timeutil"
)

var (
	fixturesFile = flag.String("fixtures", "fixtures.jsonl", "Landmark log, one JSON detection per line")
	configFile   = flag.String("config", "", "Optional tuning config JSON file")
	startAfter   = flag.Int("start-after", 5, "Frames to wait before auto-selecting and starting the run")
	verbose      = flag.Bool("v", false, "Print per-step progress as it changes")
)

func main() {
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	data, err := os.ReadFile(*fixturesFile)
	if err != nil {
		log.Fatalf("failed to open fixtures file: %v", err)
	}
	source := pose.NewFixtureSource(data, false)
	if source.FrameCount() == 0 {
		log.Fatal("fixture log contains no frames")
	}

	clock := timeutil.NewMockClock(time.Now())
	interval := cfg.GetFrameInterval()

	sess := session.New(
		cfg.SessionConfig(),
		clock,
		source,
		pose.NewSelector(cfg.SelectorConfig()),
		pose.NewClassifier(cfg.ClassifierConfig()),
		nil,
		nil,
	)

	ctx := context.Background()
	started := false
	lastStep := -1

	for i := 0; i < source.FrameCount(); i++ {
		clock.Advance(interval)
		sess.Tick(ctx)

		state := sess.State()
		if !started && i >= *startAfter {
			if state.SelectionMode == pose.ModeSelecting || state.SelectionMode == pose.ModeTracking {
				if state.SelectionMode != pose.ModeTracking {
					sess.Select(0)
					sess.Tick(ctx)
				}
				if sess.Start() {
					started = true
					log.Printf("run started at frame %d", i)
				}
			}
		}

		if *verbose && state.Progress.StepIndex != lastStep {
			lastStep = state.Progress.StepIndex
			log.Printf("frame %d: step %d (%s)", i, lastStep, state.Progress.Step.Key)
		}

		if state.Progress.Finished {
			break
		}
	}

	state := sess.State()
	if !started {
		log.Fatal("no subject was ever selected; is the log empty of detections?")
	}
	if !state.Progress.Finished {
		log.Printf("log exhausted at step %d before the run finished", state.Progress.StepIndex)
	}

	if state.Evaluation != nil {
		out, err := json.MarshalIndent(state.Evaluation, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal evaluation: %v", err)
		}
		fmt.Println(string(out))
		return
	}
	fmt.Printf("no evaluation produced; progress: step=%d hold=%dms reps=%d\n",
		state.Progress.StepIndex, state.Progress.HoldMs, state.Progress.RepCount)
}
