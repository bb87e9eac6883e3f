package citation

import (
	"context"
	"errors"
	"sync/atomic"
)

// fakeEmbedder returns a fixed-size vector per input, or a canned error.
type fakeEmbedder struct {
	err   error
	calls atomic.Int64
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if len(texts) == 0 {
		return nil, errors.New("empty input array")
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return vecs, nil
}

// fakeGenerator returns a canned reply or error.
type fakeGenerator struct {
	reply string
	err   error
	calls atomic.Int64
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}
