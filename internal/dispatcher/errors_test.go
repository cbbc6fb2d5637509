package dispatcher

import (
	"errors"
	"fmt"
	"testing"

	"github.com/UnSetSoft/ToriDB/internal/resp"
)

func TestToReplyRecoversWrappedKind(t *testing.T) {
	err := fmt.Errorf("loading table: %w", newError(resp.ErrSchemaViolation, errors.New("bad column")))
	reply := toReply(err)
	if reply.Kind != resp.KindError || reply.ErrKind != resp.ErrSchemaViolation {
		t.Fatalf("expected ErrSchemaViolation, got %+v", reply)
	}
}

func TestToReplyFallsBackToInternal(t *testing.T) {
	reply := toReply(errors.New("unclassified failure"))
	if reply.Kind != resp.KindError || reply.ErrKind != resp.ErrInternal {
		t.Fatalf("expected ErrInternal fallback, got %+v", reply)
	}
}

func TestDispatchRecoversPanicAsInternalError(t *testing.T) {
	d := &Dispatcher{}
	reply := d.Dispatch(nil, []string{"SET", "k", "v"})
	if reply.Kind != resp.KindError || reply.ErrKind != resp.ErrInternal {
		t.Fatalf("expected a recovered nil-session dereference to surface as ErrInternal, got %+v", reply)
	}
}
