package metrics

import (
	"strings"
	"time"

	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/session"
)

// Dispatcher is the subset of *dispatcher.Dispatcher Instrumented wraps.
type Dispatcher interface {
	Dispatch(sess *session.Session, args []string) resp.Reply
}

// Instrumented wraps a Dispatcher so every call records CommandsTotal and
// CommandDuration — the command-dispatch analogue of an HTTP logging
// middleware wrapping a handler. It satisfies the same Dispatch signature
// as its Next, so it can be substituted anywhere a Dispatcher is expected
// (including scheduler.CommandExecutor).
type Instrumented struct {
	Next Dispatcher
}

// Dispatch runs the wrapped command, then records its verb, outcome, and
// duration.
func (i Instrumented) Dispatch(sess *session.Session, args []string) resp.Reply {
	verb := "EMPTY"
	if len(args) > 0 {
		verb = strings.ToUpper(args[0])
	}
	start := time.Now()
	reply := i.Next.Dispatch(sess, args)
	CommandDuration.WithLabelValues(verb).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if reply.Kind == resp.KindError {
		outcome = "error"
	}
	CommandsTotal.WithLabelValues(verb, outcome).Inc()
	return reply
}
