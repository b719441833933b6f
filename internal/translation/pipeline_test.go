package translation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/kamekai/internal/apperrors"
)

type fakeTranslator struct {
	calls   atomic.Int32
	release chan struct{}
	resp    *Response
	err     error
}

func (f *fakeTranslator) Translate(ctx context.Context, credential, text string) (*Response, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.resp, f.err
}

func waitState(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pipeline")
		return State{}
	}
}

func TestPipelineBlankTextIsNoop(t *testing.T) {
	ft := &fakeTranslator{}
	p := NewPipeline(ft)

	st := waitState(t, p.Submit(context.Background(), "  \n\t", "abc.def.ghi"))
	assert.Equal(t, StatusIdle, st.Status)
	assert.Equal(t, StatusIdle, p.State().Status)
	assert.Zero(t, ft.calls.Load())
}

func TestPipelineMissingCredential(t *testing.T) {
	ft := &fakeTranslator{}
	p := NewPipeline(ft)

	st := waitState(t, p.Submit(context.Background(), "Hello", ""))
	require.Equal(t, StatusError, st.Status)
	assert.Equal(t, apperrors.MsgCredentialMissing, st.Message)
	assert.Equal(t, StatusError, p.State().Status)
	assert.Zero(t, ft.calls.Load())
}

func TestPipelineSuccess(t *testing.T) {
	want := &Response{Translations: []Translation{{Original: "Hello"}}}
	ft := &fakeTranslator{resp: want}
	p := NewPipeline(ft)

	var mu sync.Mutex
	var seen []Status
	p.OnChange(func(st State) {
		mu.Lock()
		seen = append(seen, st.Status)
		mu.Unlock()
	})

	st := waitState(t, p.Submit(context.Background(), "Hello", "abc.def.ghi"))
	require.Equal(t, StatusSuccess, st.Status)
	assert.Same(t, want, st.Response)
	assert.Equal(t, int32(1), ft.calls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusLoading, StatusSuccess}, seen)
}

func TestPipelineFailureCarriesPublicMessage(t *testing.T) {
	ft := &fakeTranslator{err: apperrors.Protocol("Translation service error (HTTP 500).", errors.New("status=500"))}
	p := NewPipeline(ft)

	st := waitState(t, p.Submit(context.Background(), "Hello", "abc.def.ghi"))
	require.Equal(t, StatusError, st.Status)
	assert.Contains(t, st.Message, "500")
	assert.Nil(t, st.Response)
}

func TestPipelineNilResponseIsError(t *testing.T) {
	p := NewPipeline(&fakeTranslator{})

	st := waitState(t, p.Submit(context.Background(), "Hello", "abc.def.ghi"))
	assert.Equal(t, StatusError, st.Status)
	assert.NotEmpty(t, st.Message)
}

func TestPipelineResetDropsStaleResult(t *testing.T) {
	ft := &fakeTranslator{
		release: make(chan struct{}),
		resp:    &Response{Translations: []Translation{{Original: "late"}}},
	}
	p := NewPipeline(ft)

	done := p.Submit(context.Background(), "Hello", "abc.def.ghi")
	assert.Equal(t, StatusLoading, p.State().Status)

	p.Reset()
	close(ft.release)

	st := waitState(t, done)
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, StatusIdle, p.State().Status, "late result must not overwrite the reset state")
}

func TestPipelineResubmitDropsEarlierResult(t *testing.T) {
	first := &fakeTranslator{release: make(chan struct{}), resp: &Response{Translations: []Translation{{Original: "first"}}}}
	p := NewPipeline(first)

	firstDone := p.Submit(context.Background(), "one", "abc.def.ghi")

	second := &Response{Translations: []Translation{{Original: "second"}}}
	p.translator = &fakeTranslator{resp: second}
	st := waitState(t, p.Submit(context.Background(), "two", "abc.def.ghi"))
	require.Equal(t, StatusSuccess, st.Status)

	close(first.release)
	waitState(t, firstDone)

	cur := p.State()
	require.Equal(t, StatusSuccess, cur.Status)
	assert.Same(t, second, cur.Response)
}
