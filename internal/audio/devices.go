package audio

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	paMu     sync.Mutex
	paActive bool
)

// Initialize readies the PortAudio host. Callers may invoke it freely;
// only the first call after process start (or after a Terminate) reaches
// the C library.
func Initialize() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paActive {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	paActive = true
	return nil
}

// Terminate releases the PortAudio host. A no-op unless a prior
// Initialize succeeded, so it is safe to defer unconditionally.
func Terminate() {
	paMu.Lock()
	defer paMu.Unlock()
	if !paActive {
		return
	}
	_ = portaudio.Terminate()
	paActive = false
}

// Device is one capture-capable PortAudio device together with the rank
// the automatic picker assigns it.
type Device struct {
	Name       string
	HostAPI    string
	Inputs     int
	SampleRate float64
	// DefaultInput marks the system default input device.
	DefaultInput bool
	// Score is the picker heuristic for this device. ListDevices sorts
	// by descending score, so index 0 is what an empty -audio-device
	// would open.
	Score int
}

// ListDevices enumerates capture-capable devices in picker order.
// Output-only devices are omitted; playback never goes through PortAudio
// here.
func ListDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	defaultIdx, hostIdx := defaultIndexes()
	ranked := rankInputs(infos, defaultIdx, hostIdx)

	devices := make([]Device, 0, len(ranked))
	for _, d := range ranked {
		hostName := ""
		if d.HostApi != nil {
			hostName = d.HostApi.Name
		}
		devices = append(devices, Device{
			Name:         d.Name,
			HostAPI:      hostName,
			Inputs:       d.MaxInputChannels,
			SampleRate:   d.DefaultSampleRate,
			DefaultInput: d.Index == defaultIdx,
			Score:        inputScore(d, defaultIdx, hostIdx),
		})
	}
	return devices, nil
}

// loopbackHints mark devices that mirror playback. The visuals should
// follow what the machine is playing, not the microphone, so these get a
// fixed boost.
var loopbackHints = []string{"monitor", "loopback", "mix", "stereo mix", "what u hear"}

// inputScore ranks d as a capture candidate: channel count seeds the
// score so richer devices win ties, the system and host API defaults
// dominate, loopback-ish names get the hint boost.
func inputScore(d *portaudio.DeviceInfo, defaultIdx, hostIdx int) int {
	score := d.MaxInputChannels
	if d.Index == defaultIdx {
		score += 50
	}
	if d.Index == hostIdx {
		score += 40
	}
	lower := strings.ToLower(d.Name)
	for _, hint := range loopbackHints {
		if strings.Contains(lower, hint) {
			score += 20
			break
		}
	}
	if strings.Contains(lower, "default") {
		score += 10
	}
	return score
}

// rankInputs filters infos down to capture-capable devices and sorts them
// by descending inputScore, names breaking ties. Both the device listing
// and the capture picker run through here, so the listing shows exactly
// the order the picker tries.
func rankInputs(infos []*portaudio.DeviceInfo, defaultIdx, hostIdx int) []*portaudio.DeviceInfo {
	ranked := make([]*portaudio.DeviceInfo, 0, len(infos))
	scores := make(map[int]int, len(infos))
	for _, d := range infos {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		ranked = append(ranked, d)
		scores[d.Index] = inputScore(d, defaultIdx, hostIdx)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].Index], scores[ranked[j].Index]
		if si == sj {
			return strings.ToLower(ranked[i].Name) < strings.ToLower(ranked[j].Name)
		}
		return si > sj
	})
	return ranked
}

// defaultIndexes resolves the system and host API default input device
// indexes, -1 for either when unset.
func defaultIndexes() (defaultIdx, hostIdx int) {
	defaultIdx, hostIdx = -1, -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIdx = def.Index
	}
	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil && host.DefaultInputDevice != nil {
		hostIdx = host.DefaultInputDevice.Index
	}
	return defaultIdx, hostIdx
}
