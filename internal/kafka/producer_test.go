package kafka

import (
	"context"
	"testing"
	"time"
)

func waitClosed(t *testing.T, p *Producer) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitClosed hung")
	}
}

func TestProducerCloseUnblocksWaitClosed(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "test.topic", 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Close()
	waitClosed(t, p)
}

func TestProducerCloseThenCancel(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "test.topic", 8)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	p.Close()
	cancel()
	waitClosed(t, p)
}

func TestProducerContextCancelStopsLoop(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "test.topic", 8)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	waitClosed(t, p)
}
