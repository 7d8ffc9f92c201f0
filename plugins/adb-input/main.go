// Package main provides an input-injection plugin for Android devices.
// It turns swipe, tap and volume requests into `adb shell input` commands.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// pluginConfig is the optional "config" object of a request.
type pluginConfig struct {
	Serial string `json:"serial"`
	ADB    string `json:"adb"`
}

// actionHandler handles one action with the request's params.
type actionHandler func(d *device, params json.RawMessage) error

// actionHandlers maps action names to their handler functions.
var actionHandlers = map[string]actionHandler{
	plugin.ActionStatus:     status,
	plugin.ActionSwipe:      swipe,
	plugin.ActionTap:        tap,
	plugin.ActionVolumeDown: volumeDown,
}

func main() {
	// Read request from stdin
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}
	writeResponse(handle(newDevice(req.Config), &req))
}

func handle(d *device, req *plugin.Request) error {
	handler, ok := actionHandlers[req.Action]
	if !ok {
		return fmt.Errorf("unknown action: %s", req.Action)
	}
	if err := handler(d, req.Params); err != nil {
		return fmt.Errorf("action %s failed: %w", req.Action, err)
	}
	return nil
}

// writeResponse writes the plugin response to stdout.
func writeResponse(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// device runs adb commands against one device.
type device struct {
	adb    string
	serial string
	run    func(name string, args ...string) (string, error)
}

func newDevice(raw json.RawMessage) *device {
	var cfg pluginConfig
	if len(raw) > 0 {
		json.Unmarshal(raw, &cfg)
	}
	if cfg.ADB == "" {
		cfg.ADB = os.Getenv("ADB")
	}
	if cfg.ADB == "" {
		cfg.ADB = "adb"
	}
	return &device{adb: cfg.ADB, serial: cfg.Serial, run: runCommand}
}

func runCommand(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

func (d *device) exec(args ...string) (string, error) {
	if d.serial != "" {
		args = append([]string{"-s", d.serial}, args...)
	}
	return d.run(d.adb, args...)
}

func (d *device) input(args ...string) error {
	_, err := d.exec(append([]string{"shell", "input"}, args...)...)
	return err
}

var wmSizeRe = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)

// screenSize returns the display size in pixels, preferring an override
// size over the physical one.
func (d *device) screenSize() (w, h int, err error) {
	out, err := d.exec("shell", "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	return parseWMSize(out)
}

func parseWMSize(out string) (w, h int, err error) {
	for _, m := range wmSizeRe.FindAllStringSubmatch(out, -1) {
		mw, _ := strconv.Atoi(m[2])
		mh, _ := strconv.Atoi(m[3])
		if w == 0 || m[1] == "Override" {
			w, h = mw, mh
		}
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", strings.TrimSpace(out))
	}
	return w, h, nil
}

// toPixel maps a normalized coordinate onto [0, size-1].
func toPixel(v float64, size int) int {
	v = math.Max(0, math.Min(1, v))
	return int(math.Round(v * float64(size-1)))
}

// status succeeds only when adb reports the device as online.
func status(d *device, _ json.RawMessage) error {
	out, err := d.exec("get-state")
	if err != nil {
		return err
	}
	if state := strings.TrimSpace(out); state != "device" {
		return fmt.Errorf("device state is %q", state)
	}
	return nil
}

func swipe(d *device, raw json.RawMessage) error {
	var p plugin.SwipeParams
	if err := decodeParams(raw, &p); err != nil {
		return err
	}
	w, h, err := d.screenSize()
	if err != nil {
		return err
	}
	return d.input("swipe",
		strconv.Itoa(toPixel(p.X1, w)), strconv.Itoa(toPixel(p.Y1, h)),
		strconv.Itoa(toPixel(p.X2, w)), strconv.Itoa(toPixel(p.Y2, h)),
		strconv.FormatInt(max(p.DurationMs, 1), 10),
	)
}

// tap presses in place. A swipe with equal endpoints holds the press for
// the requested duration, which `input tap` cannot do.
func tap(d *device, raw json.RawMessage) error {
	var p plugin.TapParams
	if err := decodeParams(raw, &p); err != nil {
		return err
	}
	w, h, err := d.screenSize()
	if err != nil {
		return err
	}
	x, y := strconv.Itoa(toPixel(p.X, w)), strconv.Itoa(toPixel(p.Y, h))
	if p.DurationMs <= 0 {
		return d.input("tap", x, y)
	}
	return d.input("swipe", x, y, x, y, strconv.FormatInt(p.DurationMs, 10))
}

func volumeDown(d *device, _ json.RawMessage) error {
	return d.input("keyevent", "KEYCODE_VOLUME_DOWN")
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
