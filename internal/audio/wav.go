package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	wavHeaderSize    = 44
	wavPCMFormat     = 1
	wavBitsPerSample = 16
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for integer PCM.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

func newWAVHeader(numChannels, sampleRate, frames int) wavHeader {
	blockAlign := numChannels * wavBitsPerSample / 8
	dataSize := uint32(frames * blockAlign)
	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   wavPCMFormat,
		NumChannels:   uint16(numChannels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: wavBitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// EncodeWAV writes the buffer as interleaved 16-bit PCM. The output depends
// only on the samples, so equal input always yields equal bytes.
func EncodeWAV(buf *SampleBuffer) ([]byte, error) {
	if buf == nil || buf.NumChannels() == 0 {
		return nil, fmt.Errorf("cannot encode buffer without channels")
	}
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", buf.SampleRate)
	}
	frames := buf.Len()
	if frames == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}

	numChannels := buf.NumChannels()
	converted := make([][]int16, numChannels)
	for c, ch := range buf.Channels {
		converted[c] = Float32ToInt16(ch)
	}
	interleaved := make([]int16, frames*numChannels)
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			interleaved[i*numChannels+c] = converted[c][i]
		}
	}

	header := newWAVHeader(numChannels, buf.SampleRate, frames)
	out := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(interleaved)*2))
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, interleaved); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return out.Bytes(), nil
}
