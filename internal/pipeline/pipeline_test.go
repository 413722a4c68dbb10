package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/grailbio/vdup/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variedGray(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(50)
			if (x+y)%2 == 0 {
				v = 200
			}
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return g
}

// fakeDecoder yields a single varied frame, then EOF.
type fakeDecoder struct {
	done bool
}

func (d *fakeDecoder) Next() (time.Duration, image.Image, error) {
	if d.done {
		return 0, nil, io.EOF
	}
	d.done = true
	return time.Second, variedGray(20, 20), nil
}

func (d *fakeDecoder) SeekForward(time.Duration) error { return nil }
func (d *fakeDecoder) SeekTo(time.Duration) error      { return nil }
func (d *fakeDecoder) ApproxLength() time.Duration     { return time.Second }

func testSamplerConfig() sampler.Config {
	cfg := sampler.DefaultConfig()
	cfg.MinFrames = 1
	cfg.KeyframeStep = time.Second
	cfg.MirrorEnabled = false
	return cfg
}

type recordingConsumer struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *recordingConsumer) Process(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestRunSamplesEveryPathExactlyOnce(t *testing.T) {
	paths := []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4"}
	consumer := &recordingConsumer{}
	cfg := Config{Workers: 3, SamplerConfig: testSamplerConfig()}

	err := Run(paths, cfg, func(path string) (sampler.Decoder, error) {
		return &fakeDecoder{}, nil
	}, nil, consumer)
	require.NoError(t, err)

	var seen []string
	for _, m := range consumer.msgs {
		seen = append(seen, m.VideoPath)
		require.Len(t, m.Frames, 1)
	}
	assert.ElementsMatch(t, paths, seen)
}

func TestRunReportsDecoderFactoryErrorsPerVideoNotFatal(t *testing.T) {
	paths := []string{"good.mp4", "bad.mp4"}
	consumer := &recordingConsumer{}
	cfg := Config{Workers: 1, SamplerConfig: testSamplerConfig()}

	err := Run(paths, cfg, func(path string) (sampler.Decoder, error) {
		if path == "bad.mp4" {
			return nil, fmt.Errorf("could not open %s", path)
		}
		return &fakeDecoder{}, nil
	}, nil, consumer)
	require.NoError(t, err)
	require.Len(t, consumer.msgs, 1)
	assert.Equal(t, "good.mp4", consumer.msgs[0].VideoPath)
}

type fakeRejectSink struct{ tag string }

func (f *fakeRejectSink) SaveRejected(time.Duration, image.Image, string) error { return nil }

func TestConfigGraveyardForPrefersFactoryOverSharedSink(t *testing.T) {
	shared := &fakeRejectSink{tag: "shared"}
	cfg := Config{
		Graveyard: shared,
		GraveyardFactory: func(path string) (sampler.RejectSink, error) {
			return &fakeRejectSink{tag: path}, nil
		},
	}
	sink, err := cfg.graveyardFor("a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", sink.(*fakeRejectSink).tag)

	cfg2 := Config{Graveyard: shared}
	sink2, err := cfg2.graveyardFor("a.mp4")
	require.NoError(t, err)
	assert.Same(t, shared, sink2)
}

type panickingConsumer struct{}

func (panickingConsumer) Process(Message) error {
	panic("boom")
}

func TestRunCatchesConsumerPanicAsError(t *testing.T) {
	cfg := Config{Workers: 1, SamplerConfig: testSamplerConfig()}
	err := Run([]string{"a.mp4"}, cfg, func(path string) (sampler.Decoder, error) {
		return &fakeDecoder{}, nil
	}, nil, panickingConsumer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestRunAbortsWorkersOnTerminatingCookie(t *testing.T) {
	cookie := &Cookie{n: 1} // already terminating
	consumer := &recordingConsumer{}
	cfg := Config{Workers: 2, SamplerConfig: testSamplerConfig()}

	err := Run([]string{"a.mp4", "b.mp4", "c.mp4"}, cfg, func(path string) (sampler.Decoder, error) {
		return &fakeDecoder{}, nil
	}, cookie, consumer)
	require.NoError(t, err)
	assert.Empty(t, consumer.msgs)
}
