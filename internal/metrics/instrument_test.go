package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/session"
)

type stubDispatcher struct {
	reply resp.Reply
}

func (s stubDispatcher) Dispatch(sess *session.Session, args []string) resp.Reply {
	return s.reply
}

func TestInstrumentedRecordsOkOutcome(t *testing.T) {
	inst := Instrumented{Next: stubDispatcher{reply: resp.OK()}}
	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("SET", "ok"))

	inst.Dispatch(session.New(), []string{"set", "k", "v"})

	after := testutil.ToFloat64(CommandsTotal.WithLabelValues("SET", "ok"))
	if after != before+1 {
		t.Fatalf("expected CommandsTotal{verb=SET,outcome=ok} to increment by 1, got %v -> %v", before, after)
	}
}

func TestInstrumentedRecordsErrorOutcome(t *testing.T) {
	inst := Instrumented{Next: stubDispatcher{reply: resp.Err(resp.ErrPermission, "")}}
	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("GET", "error"))

	inst.Dispatch(session.New(), []string{"GET", "k"})

	after := testutil.ToFloat64(CommandsTotal.WithLabelValues("GET", "error"))
	if after != before+1 {
		t.Fatalf("expected CommandsTotal{verb=GET,outcome=error} to increment by 1, got %v -> %v", before, after)
	}
}

func TestInstrumentedEmptyArgsUsesEmptyVerb(t *testing.T) {
	inst := Instrumented{Next: stubDispatcher{reply: resp.Err(resp.ErrParse, "empty command")}}
	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("EMPTY", "error"))

	inst.Dispatch(session.New(), nil)

	after := testutil.ToFloat64(CommandsTotal.WithLabelValues("EMPTY", "error"))
	if after != before+1 {
		t.Fatalf("expected CommandsTotal{verb=EMPTY,outcome=error} to increment by 1, got %v -> %v", before, after)
	}
}
