package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/zaf/g711"
)

var errInvalidPlayback = errors.New("playback: invalid source or cadence")

// Format names the sample encoding of a raw audio payload.
type Format string

const (
	FormatPCM16 Format = "pcm16"
	FormatPCMU  Format = "pcmu"
	FormatPCMA  Format = "pcma"
)

// Buffer pool for WAV headers (44 bytes plus slack).
var wavHeaderPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 64))
	},
}

// PCMBytesToULaw converts little-endian PCM16 bytes to µ-law.
func PCMBytesToULaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM byte slice length must be even (16-bit samples)")
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawBytesToPCM converts µ-law bytes to little-endian PCM16 bytes.
func ULawBytesToPCM(u []byte) []byte {
	return g711.DecodeUlaw(u)
}

// ALawBytesToPCM converts A-law bytes to little-endian PCM16 bytes.
func ALawBytesToPCM(a []byte) []byte {
	return g711.DecodeAlaw(a)
}

// DecodeSamples turns an encoded payload into PCM16 samples.
func DecodeSamples(payload []byte, format Format) ([]int16, error) {
	switch format {
	case FormatPCM16, "":
		return BytesToSamples(payload)
	case FormatPCMU:
		return BytesToSamples(ULawBytesToPCM(payload))
	case FormatPCMA:
		return BytesToSamples(ALawBytesToPCM(payload))
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

// EncodeSamples is the inverse of DecodeSamples.
func EncodeSamples(samples []int16, format Format) ([]byte, error) {
	pcm := SamplesToBytes(samples)
	switch format {
	case FormatPCM16, "":
		return pcm, nil
	case FormatPCMU:
		return PCMBytesToULaw(pcm)
	case FormatPCMA:
		return g711.EncodeAlaw(pcm), nil
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

// BytesToSamples reinterprets little-endian PCM16 bytes as samples.
func BytesToSamples(pcm []byte) ([]int16, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM data must have even length (16-bit samples)")
	}
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out, nil
}

// SamplesToBytes encodes samples as little-endian PCM16.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// StereoToMono averages interleaved left/right samples. A trailing odd
// sample is dropped.
func StereoToMono(stereo []int16) []int16 {
	frames := len(stereo) / 2
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		mono[i] = int16((int32(stereo[i*2]) + int32(stereo[i*2+1])) / 2)
	}
	return mono
}

// Downmix reduces interleaved multi-channel samples to mono.
func Downmix(samples []int16, channels int) []int16 {
	switch {
	case channels <= 1:
		return samples
	case channels == 2:
		return StereoToMono(samples)
	}
	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

// PCMBytesToWavBytes wraps PCM []byte into WAV []byte (16-bit little endian).
// Supports mono or stereo.
func PCMBytesToWavBytes(pcm []byte, numChannels, sampleRate int) ([]byte, error) {
	if numChannels <= 0 || numChannels > 2 {
		return nil, errors.New("only mono (1) or stereo (2) channels supported")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if len(pcm)%(2*numChannels) != 0 {
		return nil, errors.New("PCM data length doesn't match channel count")
	}

	buf := wavHeaderPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		wavHeaderPool.Put(buf)
	}()

	const (
		bitsPerSample  = 16
		audioFormatPCM = 1
		subchunk1Size  = 16
	)

	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(subchunk1Size))
	binary.Write(buf, binary.LittleEndian, uint16(audioFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))

	result := make([]byte, buf.Len()+len(pcm))
	copy(result, buf.Bytes())
	copy(result[buf.Len():], pcm)
	return result, nil
}

// DurationSeconds returns the play time of a mono or interleaved sample slice.
func DurationSeconds(samples, channels, sampleRate int) float64 {
	if channels <= 0 || sampleRate <= 0 {
		return 0
	}
	return float64(samples/channels) / float64(sampleRate)
}
