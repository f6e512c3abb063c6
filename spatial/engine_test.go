// SPDX-License-Identifier: EPL-2.0

package spatial_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/ik5/audbeacon"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/spatial"
	"github.com/ik5/audbeacon/speech"
)

func TestSystem_DrivesDirectionalBeacon(t *testing.T) {
	t.Parallel()

	sys, err := spatial.NewSystem(8000)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := beacon.NewEngine(sys)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	format := beacon.Format{SampleRate: 8000, Channels: 1}
	front, _ := beacon.NewSampleBuffer(bytes.Repeat([]byte{0x00, 0x10}, 480), 90)
	back, _ := beacon.NewSampleBuffer(bytes.Repeat([]byte{0x00, 0xf0}, 480), 180)
	src, err := beacon.NewDirectionalSource(format, front, back)
	if err != nil {
		t.Fatal(err)
	}

	b, err := beacon.New(eng, 0.001, 0, src)
	if err != nil {
		t.Fatalf("beacon.New() error = %v", err)
	}
	if err := eng.UpdateGeometry(0, 0, 0); err != nil {
		t.Fatalf("UpdateGeometry() error = %v", err)
	}

	var out bytes.Buffer
	if err := sys.Render(&out, 1000); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if src.Cursor() == 0 {
		t.Error("rendering did not pull from the beacon")
	}
	if bytes.Count(out.Bytes(), []byte{0}) == out.Len() {
		t.Error("rendered silence")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sys.Playing() != 0 {
		t.Errorf("Playing() = %d after Close, want 0", sys.Playing())
	}

	cursor := src.Cursor()
	if err := sys.Render(io.Discard, 1000); err != nil {
		t.Fatal(err)
	}
	if src.Cursor() != cursor {
		t.Error("closed beacon still pulled")
	}
}

func TestSystem_CullsEndedSpeechBeacon(t *testing.T) {
	t.Parallel()

	sys, err := spatial.NewSystem(8000)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := beacon.NewEngine(sys)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	speech := bytes.NewReader(bytes.Repeat([]byte{0x00, 0x20}, 300))
	src, err := beacon.NewLiveSource(speech, beacon.Format{SampleRate: 8000, Channels: 1}, 160)
	if err != nil {
		t.Fatal(err)
	}
	b, err := beacon.New(eng, 0, 0, src)
	if err != nil {
		t.Fatal(err)
	}

	if err := sys.Render(io.Discard, 800); err != nil {
		t.Fatal(err)
	}
	if !b.IsEOF() {
		t.Fatal("speech beacon not at end of stream after draining")
	}

	if err := eng.UpdateGeometry(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if eng.Len() != 0 || sys.Playing() != 0 {
		t.Errorf("Len() = %d, Playing() = %d, want both 0", eng.Len(), sys.Playing())
	}
}

func TestSystem_IdleSpeechKeepsRealTime(t *testing.T) {
	t.Parallel()

	sys, err := spatial.NewSystem(44100)
	if err != nil {
		t.Fatal(err)
	}

	cfg := audbeacon.DefaultSpeechConfig()
	cfg.ReadTimeout = 250 * time.Millisecond
	r := audbeacon.New(
		audbeacon.WithSystemFactory(func() (beacon.AudioSystem, error) { return sys, nil }),
		audbeacon.WithSpeech(cfg),
	)
	t.Cleanup(func() { _ = r.Close() })

	eng, err := r.CreateEngine()
	if err != nil {
		t.Fatal(err)
	}
	id, err := r.CreateSpeechBeacon(eng, 0.001, 0, speech.NewPipe(0))
	if err != nil {
		t.Fatalf("CreateSpeechBeacon() error = %v", err)
	}

	// ten 100 ms pulls, each waiting at most a quarter chunk on the idle pipe
	start := time.Now()
	if err := sys.Render(io.Discard, 44100); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 700*time.Millisecond {
		t.Errorf("rendering 1s of audio took %v, want well under real time", elapsed)
	}

	info, err := r.Beacon(eng, id)
	if err != nil || info.EOF {
		t.Errorf("Beacon() = %+v, %v, want an idle stream that has not ended", info, err)
	}
}
