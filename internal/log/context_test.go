package log

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

func TestLogContextTestSuite(t *testing.T) {
	suite.Run(t, new(LogContextTestSuite))
}

type LogContextTestSuite struct {
	suite.Suite

	buffer bytes.Buffer
	ctx    context.Context
}

func (s *LogContextTestSuite) SetupTest() {
	s.buffer.Reset()
	s.ctx = Into(context.Background(), zerolog.New(&s.buffer).Level(zerolog.TraceLevel))
}

func (s *LogContextTestSuite) assertMsg(expected string) {
	s.Assert().Equal(expected, s.buffer.String())
}

func (s *LogContextTestSuite) TestWithAttempt() {
	Info(WithAttempt(s.ctx, "a1")).Msg("attempt")

	s.assertMsg(`{"level":"info","attempt":"a1","message":"attempt"}` + "\n")
}

func (s *LogContextTestSuite) TestWithAddress() {
	Warn(WithAddress(s.ctx, "bob@example.com")).Msg("address")

	s.assertMsg(`{"level":"warn","address":"bob@example.com","message":"address"}` + "\n")
}

func (s *LogContextTestSuite) TestFieldsInOrderAdded() {
	ctx := WithMessage(s.ctx, "m1")
	ctx = WithAttempt(ctx, "a2")
	ctx = WithAddress(ctx, "bob@example.com")
	Debug(ctx).Msg("all")

	s.assertMsg(`{"level":"debug","message_id":"m1","attempt":"a2","address":"bob@example.com","message":"all"}` + "\n")
}

func (s *LogContextTestSuite) TestNoFields() {
	Error(s.ctx).Msg("plain")

	s.assertMsg(`{"level":"error","message":"plain"}` + "\n")
}

func (s *LogContextTestSuite) TestParentUnchanged() {
	_ = WithAttempt(s.ctx, "a3")
	Info(s.ctx).Msg("parent")

	s.assertMsg(`{"level":"info","message":"parent"}` + "\n")
}

func (s *LogContextTestSuite) TestNoLoggerDiscards() {
	ctx := WithAttempt(context.Background(), "a4")
	Error(ctx).Msg("dropped")

	s.assertMsg("")
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := Into(context.Background(), l)
	Info(ctx).Msg("hidden")
	Warn(ctx).Msg("shown")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) || !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestNew_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := Into(context.Background(), l)
	Debug(ctx).Msg("hidden")
	Info(ctx).Msg("shown")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) || !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud"); err == nil {
		t.Error("New() should reject an unknown level")
	}
}

func TestLoggersIndependent(t *testing.T) {
	var a, b bytes.Buffer
	la, _ := New(&a, "info")
	ctxA := Into(context.Background(), la)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			Info(WithAttempt(ctxA, "a")).Msg("a")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			lb, _ := New(&b, "debug")
			Info(Into(context.Background(), lb)).Msg("b")
		}
	}()
	wg.Wait()

	if bytes.Contains(a.Bytes(), []byte(`"b"`)) {
		t.Error("logger A received events for logger B")
	}
}
