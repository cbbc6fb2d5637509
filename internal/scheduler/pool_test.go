package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/session"
)

type echoExecutor struct{}

func (echoExecutor) Dispatch(sess *session.Session, args []string) resp.Reply {
	return resp.BulkString(args[0])
}

func TestPoolProcessesSubmittedJobs(t *testing.T) {
	p := NewPool(2, 4, echoExecutor{})
	p.Start()
	defer p.Stop(time.Second)

	reply := make(chan resp.Reply, 1)
	job := Job{Session: session.New(), Args: []string{"PING"}, Reply: reply}
	if err := p.Submit(context.Background(), job, time.Second); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case r := <-reply:
		if string(r.Bulk) != "PING" {
			t.Fatalf("unexpected reply: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for reply")
	}
}

func TestPoolStopDrainsRunningWorkers(t *testing.T) {
	p := NewPool(1, 1, echoExecutor{})
	p.Start()

	reply := make(chan resp.Reply, 1)
	job := Job{Session: session.New(), Args: []string{"PING"}, Reply: reply}
	if err := p.Submit(context.Background(), job, time.Second); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-reply

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestPoolSubmitTimesOutWhenQueueFull(t *testing.T) {
	p := NewPool(0, 1, echoExecutor{}) // no workers drain the queue
	p.queue <- Job{}                   // fill the only slot directly

	job := Job{Session: session.New(), Args: []string{"PING"}, Reply: make(chan resp.Reply, 1)}
	err := p.Submit(context.Background(), job, 20*time.Millisecond)
	if err == nil {
		t.Fatalf("expected submit timeout on a full queue")
	}
}
