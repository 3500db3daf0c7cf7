// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

var fakeDevices = []*portaudio.DeviceInfo{
	{Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 44100,
		DefaultLowInputLatency: 3 * time.Millisecond, DefaultHighInputLatency: 12 * time.Millisecond},
	{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{Name: "USB Interface", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 48000},
}

// withFakeDevices swaps the PortAudio device functions for the duration of t.
func withFakeDevices(t *testing.T, devices []*portaudio.DeviceInfo, err error) {
	t.Helper()
	origDevices, origIn, origOut := paLibDevicesFunc, paLibDefaultInputDeviceFunc, paLibDefaultOutputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc, paLibDefaultInputDeviceFunc, paLibDefaultOutputDeviceFunc = origDevices, origIn, origOut
	})

	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, err }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return devices[0], nil }
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return devices[1], nil }
}

func TestHostDevices(t *testing.T) {
	withFakeDevices(t, fakeDevices, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(fakeDevices) {
		t.Fatalf("got %d devices, want %d", len(devices), len(fakeDevices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != fakeDevices[i].Name {
			t.Errorf("Device %d name = %q", i, d.Name)
		}
	}
	if devices[0].LowInputLatency != 3 || devices[0].HighInputLatency != 12 {
		t.Errorf("latency = %v/%v ms, want 3/12", devices[0].LowInputLatency, devices[0].HighInputLatency)
	}

	kinds := []string{"Input", "Output", "Input/Output"}
	for i, want := range kinds {
		if got := devices[i].Kind(); got != want {
			t.Errorf("device %d kind = %q, want %q", i, got, want)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	withFakeDevices(t, nil, fmt.Errorf("mock error"))

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	withFakeDevices(t, fakeDevices, nil)

	if dev, err := InputDevice(-1); err != nil || dev.Name != "Built-in Microphone" {
		t.Errorf("default input = %v, %v", dev, err)
	}
	if dev, err := InputDevice(2); err != nil || dev.Name != "USB Interface" {
		t.Errorf("InputDevice(2) = %v, %v", dev, err)
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", len(fakeDevices) + 10, "invalid device ID"},
		{"Non-input device", 1, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestOutputDevice(t *testing.T) {
	withFakeDevices(t, fakeDevices, nil)

	if dev, err := OutputDevice(-1); err != nil || dev.Name != "Built-in Output" {
		t.Errorf("default output = %v, %v", dev, err)
	}
	if _, err := OutputDevice(0); err == nil || !strings.Contains(err.Error(), "does not support output") {
		t.Errorf("OutputDevice(0) err = %v", err)
	}
}

func TestListDevices(t *testing.T) {
	withFakeDevices(t, fakeDevices, nil)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[0] Built-in Microphone (Input)", "[2] USB Interface (Input/Output)", "Default sample rate: 48000 Hz"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	withFakeDevices(t, nil, nil)

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
}

func TestCaptureError(t *testing.T) {
	cause := errors.New("device busy")
	err := error(&CaptureError{DeviceID: 3, Err: cause})

	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Error("CaptureError does not match ErrCaptureUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("CaptureError does not unwrap to its cause")
	}
	var ce *CaptureError
	if !errors.As(fmt.Errorf("start: %w", err), &ce) || ce.DeviceID != 3 {
		t.Errorf("errors.As = %+v", ce)
	}
	if !strings.Contains(err.Error(), "capture device 3") {
		t.Errorf("Error() = %q", err.Error())
	}
	if msg := (&CaptureError{DeviceID: -1, Err: cause}).Error(); !strings.HasPrefix(msg, "default capture device") {
		t.Errorf("default device message = %q", msg)
	}
}

func TestNewEngine_BadDevice(t *testing.T) {
	withFakeDevices(t, fakeDevices, nil)

	cfg := newTestConfig(2)
	cfg.Audio.InputDevice = 1 // Output only
	_, err := NewEngine(cfg)
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("NewEngine err = %v, want ErrCaptureUnavailable", err)
	}
}
