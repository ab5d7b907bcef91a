package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatOgg  Format = "ogg"

	streamBlockSize = 4096
)

// DetectFormat sniffs the container from its magic bytes.
func DetectFormat(data []byte) (Format, bool) {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV, true
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return FormatFLAC, true
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return FormatOgg, true
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3, true
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3, true
	}
	return "", false
}

// Decode turns uploaded audio bytes into a normalized sample buffer. Empty or
// unrecognised input yields a ValidationError, a recognised but unreadable
// file yields a DecodeError.
func Decode(data []byte) (*SampleBuffer, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Err: ErrEmptyInput}
	}

	format, ok := DetectFormat(data)
	if !ok {
		return nil, &ValidationError{Err: ErrUnsupportedFormat}
	}

	streamer, f, err := openStream(format, data)
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	defer streamer.Close()

	buf, err := readStream(streamer, f)
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	return buf, nil
}

func openStream(format Format, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := bytes.NewReader(data)
	switch format {
	case FormatWAV:
		return wav.Decode(r)
	case FormatMP3:
		return mp3.Decode(io.NopCloser(r))
	case FormatFLAC:
		return flac.Decode(r)
	case FormatOgg:
		return vorbis.Decode(io.NopCloser(r))
	default:
		return nil, beep.Format{}, fmt.Errorf("no decoder for %q", format)
	}
}

func readStream(s beep.StreamSeekCloser, f beep.Format) (*SampleBuffer, error) {
	numChannels := f.NumChannels
	if numChannels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", numChannels)
	}
	if numChannels > 2 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyChannels, numChannels)
	}

	capacity := s.Len()
	if capacity < 0 {
		capacity = 0
	}
	channels := make([][]float32, numChannels)
	for c := range channels {
		channels[c] = make([]float32, 0, capacity)
	}

	block := make([][2]float64, streamBlockSize)
	for {
		n, ok := s.Stream(block)
		for i := 0; i < n; i++ {
			for c := range channels {
				channels[c] = append(channels[c], float32(block[i][c]))
			}
		}
		if !ok || n == 0 {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(channels[0]) == 0 {
		return nil, ErrNoSamples
	}

	return NewSampleBuffer(channels, int(f.SampleRate))
}
