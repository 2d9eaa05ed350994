package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeEngine struct {
	text  string
	err   error
	calls int32
}

func (f *fakeEngine) Transcribe(ctx context.Context, audio []byte) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.text, f.err
}

func TestTranscribeAdmissionBeforeLoad(t *testing.T) {
	var loads int32
	eng := &fakeEngine{text: "سلام"}
	svc := New(1, 60, func(ctx context.Context) (Engine, error) {
		atomic.AddInt32(&loads, 1)
		return eng, nil
	}, nil)

	_, err := svc.Transcribe(context.Background(), nil, 10, 2*1024*1024)
	if !errors.Is(err, ErrAudioTooLarge) {
		t.Fatalf("expected ErrAudioTooLarge got %v", err)
	}
	_, err = svc.Transcribe(context.Background(), nil, 120, 100)
	if !errors.Is(err, ErrAudioTooLong) {
		t.Fatalf("expected ErrAudioTooLong got %v", err)
	}
	if atomic.LoadInt32(&loads) != 0 {
		t.Fatalf("admission rejection must not load the engine")
	}
}

func TestTranscribeTrimsOutput(t *testing.T) {
	eng := &fakeEngine{text: "  سلام دنیا \n"}
	svc := New(1, 60, func(ctx context.Context) (Engine, error) { return eng, nil }, nil)

	got, err := svc.Transcribe(context.Background(), []byte("ogg"), 5, 100)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got != "سلام دنیا" {
		t.Fatalf("expected trimmed transcript got %q", got)
	}
}

func TestEngineLoadedOnce(t *testing.T) {
	var loads int32
	eng := &fakeEngine{text: "متن"}
	svc := New(1, 60, func(ctx context.Context) (Engine, error) {
		atomic.AddInt32(&loads, 1)
		return eng, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Transcribe(context.Background(), []byte("ogg"), 5, 100); err != nil {
				t.Errorf("transcribe: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&loads); got != 1 {
		t.Fatalf("expected exactly one engine load got %d", got)
	}
	if atomic.LoadInt32(&eng.calls) != 10 {
		t.Fatalf("expected 10 transcriptions got %d", eng.calls)
	}
}

func TestLoadFailureSurfaces(t *testing.T) {
	svc := New(1, 60, func(ctx context.Context) (Engine, error) {
		return nil, errors.New("model unavailable")
	}, nil)

	if _, err := svc.Transcribe(context.Background(), []byte("ogg"), 5, 100); err == nil {
		t.Fatalf("expected load error surfaced")
	}
}
