package detector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when mediapipe_service.py cannot be located.
var ErrScriptNotFound = errors.New("mediapipe_service.py not found")

const (
	serviceScript = "scripts/mediapipe_service.py"
	venvPython    = "venv/bin/python"
)

// MediaPipeDetector runs hand detection in a Python MediaPipe subprocess.
// Requests are serialized; the process starts on the first Detect and
// stops after IdleTimeout without requests.
type MediaPipeDetector struct {
	config     Config
	scriptPath string

	mu     sync.Mutex
	proc   *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	idle   *time.Timer
}

// NewMediaPipeDetector locates the service script. No process is started.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.ScriptPath
	if script == "" {
		script = locate(serviceScript, "..")
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("stat %s: %w", script, err)
	}
	return &MediaPipeDetector{config: config, scriptPath: script}, nil
}

// Detect sends img (BGR) to the service as JPEG and returns the hands it
// reports.
func (d *MediaPipeDetector) Detect(img *gocv.Mat) ([]HandLandmarks, error) {
	if img == nil || img.Empty() {
		return nil, errors.New("empty image")
	}

	buf, err := gocv.IMEncode(".jpg", *img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.start(); err != nil {
		return nil, err
	}
	hands, err := d.exchange(buf.GetBytes())
	if err != nil {
		var serviceErr *ServiceError
		if !errors.As(err, &serviceErr) {
			// The stream is out of sync or the process died; the next
			// Detect starts a fresh service.
			d.reset()
		}
		return nil, err
	}

	d.touch()
	return hands, nil
}

func (d *MediaPipeDetector) exchange(image []byte) ([]HandLandmarks, error) {
	if err := writeRequest(d.stdin, image); err != nil {
		return nil, err
	}
	return readResponse(d.stdout)
}

// Close stops the service if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

// args builds the service command line from the detector configuration.
func (d *MediaPipeDetector) args() []string {
	args := []string{
		d.scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
	}
	if d.config.StaticImageMode {
		args = append(args, "--static-image-mode")
	}
	return args
}

func (d *MediaPipeDetector) python() string {
	if d.config.PythonPath != "" {
		return d.config.PythonPath
	}
	if p := locate(venvPython, "..", "../.."); p != "" {
		return p
	}
	return "python3"
}

func (d *MediaPipeDetector) start() error {
	if d.proc != nil {
		return nil
	}

	cmd := exec.Command(d.python(), d.args()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}
	log.Debugf("Started mediapipe service (pid %d)", cmd.Process.Pid)

	d.proc = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	return nil
}

func (d *MediaPipeDetector) stop() error {
	if d.proc == nil {
		return nil
	}
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}

	d.stdin.Close()
	err := d.proc.Wait()
	d.proc, d.stdin, d.stdout = nil, nil, nil
	return err
}

// reset kills a broken service and forgets it.
func (d *MediaPipeDetector) reset() {
	if d.proc == nil {
		return
	}
	log.Warnf("Restarting mediapipe service (pid %d)", d.proc.Process.Pid)
	if err := d.proc.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Debugf("Kill mediapipe service: %v", err)
	}
	if err := d.stop(); err != nil {
		log.Debugf("Stop mediapipe service: %v", err)
	}
}

// touch restarts the idle countdown.
func (d *MediaPipeDetector) touch() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idle != nil {
		d.idle.Stop()
	}
	d.idle = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.stop(); err != nil {
			log.Debugf("Idle shutdown of mediapipe service: %v", err)
		}
	})
}

// locate finds rel in the working directory, the given parent directories,
// next to the executable and under ~/.mudra. It returns an absolute path,
// or "" when nothing exists.
func locate(rel string, parents ...string) string {
	candidates := []string{rel}
	for _, p := range parents {
		candidates = append(candidates, filepath.Join(p, rel))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mudra", rel))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err != nil {
			continue
		}
		if abs, err := filepath.Abs(c); err == nil {
			return abs
		}
		return c
	}
	return ""
}
