// Package audioconv decodes audio files into the 16 kHz mono float32 PCM
// that the transcriber expects.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// MaxSamples truncates the output; 0 keeps everything.
	MaxSamples int
}

type decodeFunc func(io.ReadSeeker) (pcm []float32, channels, rate int, err error)

func ConvertFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Convert(ctx, f, strings.ToLower(filepath.Ext(path)), opt)
}

// Convert decodes r. ext (".wav", ".mp3", ".ogg", ...) picks the decoder;
// anything else is sniffed from the header.
func Convert(ctx context.Context, r io.ReadSeeker, ext string, opt Options) ([]float32, error) {
	var chain []decodeFunc
	switch ext {
	case ".wav":
		chain = []decodeFunc{decodeWAV}
	case ".mp3":
		chain = []decodeFunc{decodeMP3}
	case ".ogg", ".oga", ".opus":
		chain = []decodeFunc{decodeVorbis, decodeOpus}
	default:
		magic, _ := bufio.NewReader(r).Peek(4)
		switch {
		case string(magic) == "RIFF":
			chain = []decodeFunc{decodeWAV}
		case string(magic) == "OggS":
			chain = []decodeFunc{decodeVorbis, decodeOpus}
		case len(magic) >= 3 && (string(magic[:3]) == "ID3" || magic[0] == 0xFF):
			chain = []decodeFunc{decodeMP3}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
		}
	}

	var errs []error
	for _, dec := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		pcm, ch, rate, err := dec(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return normalize(pcm, ch, rate, opt), nil
	}
	return nil, fmt.Errorf("decode audio: %w", errors.Join(errs...))
}

func normalize(x []float32, channels, rate int, opt Options) []float32 {
	x = downmixInterleaved(x, channels)
	x = resampleLinear(x, rate, TargetRate)
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, 0, 0, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return intSliceToFloat32(pb.Data, bd), ch, sr, nil
}

func decodeMP3(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, 0, 0, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, 0, 0, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	// go-mp3 always emits interleaved stereo.
	return int16SliceToFloat32(ints), 2, sr, nil
}

func decodeVorbis(r io.ReadSeeker) ([]float32, int, int, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, 0, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, 0, 0, errors.New("invalid ogg/vorbis stream")
	}
	return pcm, format.Channels, format.SampleRate, nil
}

func decodeOpus(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// libopusfile always decodes at 48 kHz.
	var (
		pcm []float32
		buf = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
	}
	return pcm, ch, 48000, nil
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := range nFrames {
		sum := 0.0
		base := i * channels
		for c := range channels {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := range outN {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
